// Package console is the operator's line-oriented view of a running park.
// Each connection gets a Session that reads commands and writes reports; all
// changes to the park go through the game's action dispatcher.
package console

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/room"
	"github.com/pixil98/go-park/internal/storage"
)

// Game is the part of a running park the console drives.
type Game interface {
	Snapshot() park.WorldState
	Status() room.Status
	Self() room.Player
	Multiplayer() bool
	Dispatch(ctx context.Context, a actions.Action) error
	Host(ctx context.Context, name string) (string, error)
	Join(ctx context.Context, code string) (room.Data, error)
	Leave(ctx context.Context) error
	Save(ctx context.Context, slot string) error
	Saves(ctx context.Context) ([]storage.SlotInfo, error)
}

// CommandFunc runs a command. A *UserError is reported to the operator;
// any other error ends the session.
type CommandFunc func(ctx context.Context, s *Session, args []string) error

// Command is a console verb.
type Command struct {
	Name        string
	Category    string
	Usage       string
	Description string
	MinArgs     int
	// MaxArgs of -1 accepts any number of arguments.
	MaxArgs int
	Run     CommandFunc
}

type Handler struct {
	game     Game
	commands map[string]*Command
}

func NewHandler(g Game) *Handler {
	h := &Handler{
		game:     g,
		commands: make(map[string]*Command),
	}
	for _, c := range h.builtins() {
		if err := h.Register(c); err != nil {
			panic(err)
		}
	}
	return h
}

// Register adds a command. Names are matched case-insensitively.
func (h *Handler) Register(c *Command) error {
	if c == nil || c.Name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if c.Run == nil {
		return fmt.Errorf("command %q has no function", c.Name)
	}
	name := strings.ToLower(c.Name)
	if _, exists := h.commands[name]; exists {
		return fmt.Errorf("command %q already registered", name)
	}
	h.commands[name] = c
	return nil
}

// Commands returns every registered command ordered by name.
func (h *Handler) Commands() []*Command {
	out := make([]*Command, 0, len(h.commands))
	for _, c := range h.commands {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Command) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Exec parses and runs one line of input.
func (h *Handler) Exec(ctx context.Context, s *Session, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	c, ok := h.commands[strings.ToLower(parts[0])]
	if !ok {
		return userErrorf("Unknown command: %s. Type help for a list.", parts[0])
	}

	args := parts[1:]
	if len(args) < c.MinArgs {
		return userErrorf("Expected at least %d argument(s), got %d. Usage: %s", c.MinArgs, len(args), usage(c))
	}
	if c.MaxArgs >= 0 && len(args) > c.MaxArgs {
		return userErrorf("Expected at most %d argument(s), got %d. Usage: %s", c.MaxArgs, len(args), usage(c))
	}

	return c.Run(ctx, s, args)
}

func usage(c *Command) string {
	if c.Usage == "" {
		return c.Name
	}
	return c.Name + " " + c.Usage
}
