package measure

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Fallbacks applied when a success payload omits a field.
const (
	FallbackArea  = "N/A"
	FallbackUnit  = ""
	FallbackOCR   = "N/A"
	FallbackNotes = "No specific notes from server."
	FallbackScale = "N/A"
)

// Result is the interpreted success response of POST /calculate_area.
// Every field is populated; absent server fields carry their fallback.
type Result struct {
	// Area is text because the server may send sentinels such as "N/A".
	Area    string
	Unit    string
	OCRText string
	Numbers []float64
	// ContourAreaPixels is nil when the server detected no shape.
	ContourAreaPixels *float64
	Notes             string

	// Diagnostics beyond the display contract.
	ContoursCount *int
	Scale         string
	FileName      string
	ServerMessage string
}

// Decode interprets a success body. An empty, null or non-object body is a
// contract violation; anything else decodes, with each missing or mistyped
// field replaced by its fallback. Empty strings and a zero contour area are
// treated as missing.
func Decode(body []byte) (*Result, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, &Error{Kind: KindContract, Message: MsgEmptyResponse}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &Error{
			Kind:    KindContract,
			Message: MsgEmptyResponse,
			Err:     fmt.Errorf("invalid JSON: %w (body: %s)", err, truncate(string(body), 200)),
		}
	}

	return &Result{
		Area:              textField(fields, "estimated_area_in_input_units", FallbackArea),
		Unit:              stringField(fields, "input_unit", FallbackUnit),
		OCRText:           stringField(fields, "ocr_output", FallbackOCR),
		Numbers:           numbersField(fields, "extracted_numbers_from_ocr"),
		ContourAreaPixels: positiveField(fields, "largest_contour_area_pixels"),
		Notes:             stringField(fields, "calculation_notes", FallbackNotes),
		ContoursCount:     intField(fields, "detected_contours_count"),
		Scale:             stringField(fields, "scale_used_for_estimation", FallbackScale),
		FileName:          stringField(fields, "filename", ""),
		ServerMessage:     stringField(fields, "message", ""),
	}, nil
}

// decodeServerError extracts the "error" string of a failure body, if any.
func decodeServerError(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil {
		return ""
	}
	return stringField(fields, "error", "")
}

func stringField(fields map[string]json.RawMessage, key, fallback string) string {
	var s string
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	return fallback
}

// textField is stringField that also accepts a JSON number, kept as its
// literal text. Zero counts as missing.
func textField(fields map[string]json.RawMessage, key, fallback string) string {
	if s := stringField(fields, key, ""); s != "" {
		return s
	}
	var n json.Number
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &n) == nil {
		if f, err := n.Float64(); err == nil && f != 0 {
			return n.String()
		}
	}
	return fallback
}

func positiveField(fields map[string]json.RawMessage, key string) *float64 {
	var f float64
	if raw, ok := fields[key]; ok && json.Unmarshal(raw, &f) == nil && f != 0 {
		return &f
	}
	return nil
}

func intField(fields map[string]json.RawMessage, key string) *int {
	var n int
	if raw, ok := fields[key]; ok && !isNull(raw) && json.Unmarshal(raw, &n) == nil {
		return &n
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// numbersField never returns nil; non-numeric elements are skipped.
func numbersField(fields map[string]json.RawMessage, key string) []float64 {
	numbers := []float64{}
	raw, ok := fields[key]
	if !ok {
		return numbers
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return numbers
	}
	for _, item := range items {
		var f float64
		if !isNull(item) && json.Unmarshal(item, &f) == nil {
			numbers = append(numbers, f)
		}
	}
	return numbers
}

// truncate returns at most n bytes of s, cut on a rune boundary, appending
// "..." if truncated.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
