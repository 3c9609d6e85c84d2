// Package session holds the user's image and unit selection, the lifecycle
// of the measurement request built from them, and the last outcome.
//
// Session is a plain state container and is not safe for concurrent use.
// Controller owns one Session and serializes every change through its
// event loop.
package session

import (
	"errors"
	"fmt"

	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/fpang/area-calc/internal/measure"
	"github.com/fpang/area-calc/internal/units"
	"github.com/rs/zerolog/log"
)

// ErrBusy is returned when submitting while a request is in flight.
var ErrBusy = errors.New("a measurement is already in progress")

// Submission is a request accepted by Begin. Ticket identifies it when the
// outcome is reported back through Complete.
type Submission struct {
	Ticket  uint64
	Request measure.Request
}

// View is an immutable snapshot of a Session.
type View struct {
	Status    Status
	Image     *filehandler.Selection
	ImageInfo string
	Unit      units.Unit
	Result    *measure.Result
	Message   string
	Err       error
}

// CanSubmit reports whether both selections are present and nothing is in flight.
func (v View) CanSubmit() bool {
	return v.Image != nil && v.Unit.IsSet() && v.Status != InFlight && v.Status != Validating
}

// Session is the selection state plus the current request lifecycle.
// The committed result and the committed message are never both set.
type Session struct {
	image     *filehandler.Selection
	imageInfo string
	unit      units.Unit
	status    Status
	result    *measure.Result
	message   string
	err       error
	ticket    uint64
}

// New returns an Idle session with nothing selected.
func New() *Session {
	return &Session{status: Idle}
}

// Status returns the current request status.
func (s *Session) Status() Status {
	return s.status
}

// Ticket returns the ticket of the most recent submission.
func (s *Session) Ticket() uint64 {
	return s.ticket
}

func (s *Session) transition(to Status) error {
	if !CanTransition(s.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
	}
	log.Debug().Str("from", s.status.String()).Str("to", to.String()).Msg("Session status transition")
	s.status = to
	return nil
}

// reset returns to Idle and discards everything downstream of the selection.
// Bumping the ticket makes any in-flight settlement stale.
func (s *Session) reset() {
	if s.status == InFlight {
		s.ticket++
	}
	_ = s.transition(Idle)
	s.result = nil
	s.message = ""
	s.err = nil
}

// SelectImage replaces the image. info is an optional human-readable
// description of the photo.
func (s *Session) SelectImage(sel filehandler.Selection, info string) {
	s.image = &sel
	s.imageInfo = info
	s.reset()
}

// SelectUnit replaces the unit.
func (s *Session) SelectUnit(u units.Unit) {
	s.unit = u
	s.reset()
}

// AcquisitionFailed records a failed image pick. Cancellation changes
// nothing. Other failures keep the previous image and show the error.
// While a request is in flight the failure is only logged. It reports
// whether the session changed.
func (s *Session) AcquisitionFailed(err error) bool {
	if errors.Is(err, filehandler.ErrCanceled) {
		log.Debug().Msg("Image selection canceled")
		return false
	}
	if s.status == InFlight {
		log.Warn().Err(err).Msg("Image selection failed while a measurement is in flight")
		return false
	}
	acqErr := measure.NewAcquisitionError(err)
	log.Error().Err(err).Msg("Image selection failed")
	_ = s.transition(Idle)
	s.result = nil
	s.message = acqErr.Message
	s.err = acqErr
	return true
}

// Begin validates the preconditions and, when they hold, moves the
// session to InFlight and returns the submission to send. A precondition
// failure is committed as Failed and returned; nothing should be sent.
func (s *Session) Begin() (Submission, error) {
	if s.status == InFlight || s.status == Validating {
		return Submission{}, ErrBusy
	}
	if err := s.transition(Validating); err != nil {
		return Submission{}, err
	}

	var precondition error
	switch {
	case s.image == nil:
		precondition = measure.ErrNoImage
	case !s.unit.IsSet():
		precondition = measure.ErrNoUnit
	}
	if precondition != nil {
		s.fail(precondition)
		return Submission{}, precondition
	}

	if err := s.transition(InFlight); err != nil {
		return Submission{}, err
	}
	s.ticket++
	s.result = nil
	s.err = nil
	s.message = measure.MsgInProgress

	return Submission{
		Ticket:  s.ticket,
		Request: measure.Request{Image: *s.image, Unit: s.unit},
	}, nil
}

// Complete settles the submission identified by ticket. It returns false,
// and changes nothing, when the ticket is stale.
func (s *Session) Complete(ticket uint64, result *measure.Result, err error) bool {
	if s.status != InFlight || ticket != s.ticket {
		log.Debug().
			Uint64("ticket", ticket).
			Uint64("current", s.ticket).
			Str("status", s.status.String()).
			Msg("Discarding stale measurement outcome")
		return false
	}
	if err == nil && result == nil {
		err = &measure.Error{Kind: measure.KindContract, Message: measure.MsgEmptyResponse}
	}
	if err != nil {
		s.fail(err)
		return true
	}
	_ = s.transition(Succeeded)
	s.result = result
	s.message = ""
	s.err = nil
	return true
}

func (s *Session) fail(err error) {
	_ = s.transition(Failed)
	s.result = nil
	s.err = err
	s.message = measure.UserMessage(err)
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	v := View{
		Status:    s.status,
		ImageInfo: s.imageInfo,
		Unit:      s.unit,
		Result:    s.result,
		Message:   s.message,
		Err:       s.err,
	}
	if s.image != nil {
		img := *s.image
		v.Image = &img
	}
	return v
}
