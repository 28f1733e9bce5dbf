package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pixil98/go-park/internal/display"
)

type SessionOpt func(*Session)

// WithWidth sets the column output is wrapped to. Zero disables wrapping.
func WithWidth(w int) SessionOpt {
	return func(s *Session) {
		s.width = w
	}
}

// Session is one operator connected to the console.
type Session struct {
	conn    io.ReadWriter
	handler *Handler
	width   int
	quit    bool
}

func NewSession(conn io.ReadWriter, h *Handler, opts ...SessionOpt) *Session {
	s := &Session{
		conn:    conn,
		handler: h,
		width:   display.DefaultWidth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads commands until the operator quits, the connection drops or ctx
// is cancelled.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputChan := make(chan string)
	inputErrChan := make(chan error, 1)
	go func() {
		defer close(inputChan)
		scanner := bufio.NewScanner(s.conn)
		for scanner.Scan() {
			select {
			case inputChan <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inputErrChan <- scanner.Err()
	}()

	w := s.handler.game.Snapshot()
	if err := s.Println(fmt.Sprintf("Welcome to %s. Type help for a list of commands.", w.Name)); err != nil {
		return err
	}
	if err := s.prompt(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			_ = s.Println("\nThe park is closing.")
			return nil

		case line, ok := <-inputChan:
			if !ok {
				select {
				case err := <-inputErrChan:
					return err
				default:
					return nil
				}
			}

			line = strings.TrimSpace(line)
			if line != "" {
				err := s.handler.Exec(ctx, s, line)
				var userErr *UserError
				if errors.As(err, &userErr) {
					if err := s.Println(userErr.Message); err != nil {
						return err
					}
				} else if err != nil {
					return fmt.Errorf("running %q: %w", line, err)
				}

				if s.quit {
					slog.DebugContext(ctx, "console session quit")
					return nil
				}
			}

			if err := s.prompt(); err != nil {
				return err
			}
		}
	}
}

// Print writes text as is followed by a blank line. Reports with columns
// use it so they are not rewrapped.
func (s *Session) Print(text string) error {
	_, err := io.WriteString(s.conn, text+"\n\n")
	return err
}

// Println writes msg wrapped to the session width followed by a blank line.
func (s *Session) Println(msg string) error {
	_, err := io.WriteString(s.conn, display.WrapWidth(msg, s.width)+"\n\n")
	return err
}

func (s *Session) prompt() error {
	w := s.handler.game.Snapshot()
	_, err := fmt.Fprintf(s.conn, "[%s %s %s] > ", w.Name, display.Clock(w.Hour), display.Money(w.Finances.Cash))
	return err
}
