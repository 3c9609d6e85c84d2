// Package measure is the client side of the remote area-estimation service.
//
// The service exposes a single endpoint, POST /calculate_area, taking a
// multipart body with an "image" file part and a "unit" text part. Measure
// issues exactly one attempt per call and maps every outcome to either a
// fully defaulted Result or an *Error whose Kind tells the caller which
// branch was taken:
//
//   - 2xx with a JSON object body: Result (see Decode)
//   - 2xx with an empty or non-object body: KindContract
//   - non-2xx: KindServer, message taken from the body's "error" field
//   - sent but no reply: KindTransport
//   - could not build or send: KindSetup
package measure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/fpang/area-calc/internal/metrics"
	"github.com/fpang/area-calc/internal/units"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultServerURL is where the reference server listens (Flask default port).
	DefaultServerURL = "http://127.0.0.1:5000"

	// EndpointPath is the measurement endpoint relative to the server URL.
	EndpointPath = "/calculate_area"

	// RequestIDHeader carries a per-submission id for correlating server logs.
	RequestIDHeader = "X-Request-ID"

	metricsNamespace = "AreaCalc"
)

// Request is one measurement submission.
type Request struct {
	Image filehandler.Selection
	Unit  units.Unit
}

// ClientOpts configures NewClient.
type ClientOpts struct {
	// ServerURL is the scheme and host (and optional base path) of the service.
	ServerURL string
	// Timeout overrides the transport default when positive.
	Timeout time.Duration
	// MaxUploadBytes is the size above which an upload is logged as likely
	// to be rejected. Defaults to filehandler.DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// Client submits measurement requests.
type Client struct {
	httpClient     *resty.Client
	endpoint       string
	maxUploadBytes int64
}

// NewClient creates a measurement client. It fails on a malformed server URL.
func NewClient(opts ClientOpts) (*Client, error) {
	server := opts.ServerURL
	if server == "" {
		server = DefaultServerURL
	}
	endpoint, err := endpointURL(server)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New().
		SetDebug(false).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	return &Client{
		httpClient:     httpClient,
		endpoint:       endpoint,
		maxUploadBytes: opts.MaxUploadBytes,
	}, nil
}

// Endpoint returns the absolute URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

func endpointURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", server, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", server)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", server)
	}
	return strings.TrimRight(u.String(), "/") + EndpointPath, nil
}

// Measure uploads the image and unit and interprets the reply.
func (c *Client) Measure(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()
	requestID := uuid.NewString()

	rec := metrics.New(metricsNamespace).
		Dimension("Unit", req.Unit.String()).
		Property("requestId", requestID)

	result, err := c.measure(ctx, req, requestID, rec)

	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	rec.Dimension("Outcome", outcome).
		Metric("LatencyMs", float64(time.Since(startTime).Milliseconds()), metrics.UnitMilliseconds).
		Count("Requests").
		Flush()

	return result, err
}

func (c *Client) measure(ctx context.Context, req Request, requestID string, rec *metrics.Recorder) (*Result, error) {
	if !req.Unit.IsSet() {
		return nil, &Error{Kind: KindSetup, Message: MsgSetupError, Err: errors.New("unit not set")}
	}

	payload, err := filehandler.Prepare(req.Image, c.maxUploadBytes)
	if err != nil {
		log.Error().Err(err).Str("path", req.Image.Path).Msg("Failed to prepare image payload")
		return nil, &Error{Kind: KindSetup, Message: MsgSetupError, Err: err}
	}
	rec.Metric("UploadBytes", float64(payload.Size()), metrics.UnitBytes)

	log.Debug().
		Str("method", "POST").
		Str("url", c.endpoint).
		Str("requestId", requestID).
		Str("fileName", payload.FileName).
		Str("contentType", payload.ContentType).
		Int("bytes", payload.Size()).
		Bool("transcoded", payload.Transcoded).
		Str("unit", req.Unit.String()).
		Msg("Measurement request")

	res, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID).
		SetMultipartField("image", payload.FileName, payload.ContentType, bytes.NewReader(payload.Data)).
		SetMultipartFormData(map[string]string{"unit": req.Unit.String()}).
		Post(c.endpoint)
	if err != nil {
		return nil, classifySendError(res, err)
	}

	log.Debug().
		Int("statusCode", res.StatusCode()).
		Dur("duration", res.Time()).
		Str("requestId", requestID).
		Msg("Measurement response")

	if res.IsError() {
		msg := decodeServerError(res.Body())
		if msg == "" {
			msg = MsgServerError
		}
		log.Error().
			Int("statusCode", res.StatusCode()).
			Str("errorMessage", msg).
			Str("body", truncate(string(res.Body()), 200)).
			Msg("Measurement server returned an error")
		return nil, &Error{Kind: KindServer, Message: msg, StatusCode: res.StatusCode()}
	}

	result, err := Decode(res.Body())
	if err != nil {
		log.Error().Err(err).Int("statusCode", res.StatusCode()).Msg("Unexpected measurement response")
		return nil, err
	}

	log.Info().
		Str("requestId", requestID).
		Str("area", result.Area).
		Str("unit", result.Unit).
		Int("numbers", len(result.Numbers)).
		Msg("Measurement received")
	return result, nil
}

// classifySendError separates "sent but no reply" from "could not send".
// net/http reports every failure after the request was handed to the
// transport as a *url.Error; anything else happened while building it.
func classifySendError(res *resty.Response, err error) *Error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
		(res != nil && res.RawResponse != nil) {
		log.Error().Err(err).Msg("No response from measurement server")
		return &Error{Kind: KindTransport, Message: MsgNoResponse, Err: err}
	}
	log.Error().Err(err).Msg("Failed to set up measurement request")
	return &Error{Kind: KindSetup, Message: MsgSetupError, Err: err}
}
