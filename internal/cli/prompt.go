package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fpang/area-calc/internal/desktop"
	"github.com/fpang/area-calc/internal/filehandler"
	"github.com/fpang/area-calc/internal/session"
	"github.com/fpang/area-calc/internal/units"
	"github.com/rs/zerolog/log"
)

// Picker acquires an image from the user.
type Picker interface {
	Pick(ctx context.Context) (filehandler.Selection, error)
}

// Controller is the part of session.Controller the shell drives.
type Controller interface {
	SelectImage(sel filehandler.Selection, info string) error
	SelectUnit(u units.Unit) error
	AcquisitionFailed(err error) error
	Submit() (<-chan session.View, error)
	Snapshot() (session.View, error)
}

// ShellOpts configures NewShell.
type ShellOpts struct {
	In  io.Reader
	Out io.Writer
	// Picker is used by "image" without a path. Nil disables the dialog.
	Picker Picker
	// Describe returns a one-line description of a photo, or "".
	Describe func(path string) string
}

// Shell is the interactive command loop.
type Shell struct {
	ctrl     Controller
	picker   Picker
	describe func(string) string

	lines chan string
	in    io.Reader

	mu  sync.Mutex
	out io.Writer
	// notice is closed by the next input line while a connection loss
	// notice is open.
	notice chan struct{}
}

// NewShell creates a shell. Call Attach before Run.
func NewShell(opts ShellOpts) *Shell {
	describe := opts.Describe
	if describe == nil {
		describe = func(string) string { return "" }
	}
	return &Shell{
		picker:   opts.Picker,
		describe: describe,
		in:       opts.In,
		out:      opts.Out,
		lines:    make(chan string),
	}
}

// Attach sets the controller the shell drives.
func (s *Shell) Attach(ctrl Controller) {
	s.ctrl = ctrl
}

// OnChange renders every committed state change. It is meant to be passed
// to session.NewController as the listener.
func (s *Shell) OnChange(v session.View) {
	s.print("\n" + RenderView(v))
}

func (s *Shell) print(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.out, text)
}

func (s *Shell) printf(format string, a ...interface{}) {
	s.print(fmt.Sprintf(format, a...))
}

// Run reads commands until "quit", end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.readLines(ctx)

	s.print(helpText())
	for {
		s.print("> ")
		line, ok := s.next(ctx)
		if !ok {
			return nil
		}
		quit, err := s.dispatch(ctx, line)
		if err != nil {
			if errors.Is(err, session.ErrStopped) {
				return nil
			}
			return err
		}
		if quit {
			return nil
		}
	}
}

func (s *Shell) readLines(ctx context.Context) {
	defer close(s.lines)
	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to read input")
	}
}

func (s *Shell) next(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-s.lines:
		if ok && s.acknowledge() {
			return "", true
		}
		return line, ok
	case <-ctx.Done():
		return "", false
	}
}

func (s *Shell) dispatch(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch cmd {
	case "image", "i":
		return false, s.selectImage(ctx, arg)
	case "unit", "u":
		return false, s.selectUnit(ctx, arg)
	case "calc", "c":
		return false, s.submit()
	case "status", "s":
		v, err := s.ctrl.Snapshot()
		if err != nil {
			return false, err
		}
		s.print(RenderView(v))
	case "help", "h", "?":
		s.print(helpText())
	case "quit", "q", "exit":
		return true, nil
	default:
		s.printf("Unknown command %q. Type 'help' for a list of commands.\n", cmd)
	}
	return false, nil
}

func (s *Shell) selectImage(ctx context.Context, location string) error {
	var (
		sel filehandler.Selection
		err error
	)
	switch {
	case location != "":
		sel, err = filehandler.FromPath(location)
	case s.picker != nil:
		sel, err = s.picker.Pick(ctx)
	default:
		s.print("No native file dialog available. Use: image PATH\n")
		return nil
	}
	if err != nil {
		return s.ctrl.AcquisitionFailed(err)
	}
	return s.ctrl.SelectImage(sel, s.describe(sel.Path))
}

func (s *Shell) selectUnit(ctx context.Context, name string) error {
	if name == "" {
		s.printf("Unit [%s]: ", strings.Join(units.Names(), "/"))
		line, ok := s.next(ctx)
		if !ok {
			return nil
		}
		name = strings.TrimSpace(line)
		if name == "" {
			return nil
		}
	}
	u, err := units.Parse(name)
	if err != nil {
		s.printf("%s\n", err)
		return nil
	}
	return s.ctrl.SelectUnit(u)
}

func (s *Shell) submit() error {
	_, err := s.ctrl.Submit()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrBusy):
		s.print("A measurement is already in progress.\n")
		return nil
	case errors.Is(err, session.ErrStopped):
		return err
	default:
		// Precondition failures are already rendered through OnChange.
		log.Debug().Err(err).Msg("Submission not started")
		return nil
	}
}

// DescribeImage returns the EXIF summary of the photo at path, or "".
func DescribeImage(path string) string {
	meta, err := filehandler.ExtractImageMetadata(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("No EXIF metadata for selected image")
		return ""
	}
	return meta.Summary()
}

// NotifyDisconnected prints the connection loss notice and blocks until the
// user presses Enter or ctx is done. It is used in place of the native alert
// when dialogs are disabled. The acknowledging line is not run as a command.
func (s *Shell) NotifyDisconnected(ctx context.Context) error {
	ack := make(chan struct{})
	s.mu.Lock()
	s.notice = ack
	s.mu.Unlock()

	s.print("\n" + formatText(`
		*** %s ***
		%s
		[%s] Press Enter to close.
	`, desktop.DisconnectedTitle, desktop.DisconnectedText, desktop.DisconnectedButton) + "\n")

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		if s.notice == ack {
			s.notice = nil
		}
		s.mu.Unlock()
		return ctx.Err()
	}
}

// acknowledge closes the open notice, if any, and reports whether there was one.
func (s *Shell) acknowledge() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil {
		return false
	}
	close(s.notice)
	s.notice = nil
	return true
}
