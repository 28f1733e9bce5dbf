package console

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pixil98/go-park/internal/actions"
	"github.com/pixil98/go-park/internal/display"
	"github.com/pixil98/go-park/internal/multiplayer"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/room"
	"github.com/pixil98/go-park/internal/session"
	"github.com/pixil98/go-park/internal/storage"
)

const (
	categoryPark    = "park"
	categoryRides   = "rides"
	categoryStaff   = "staff"
	categoryScenery = "scenery"
	categoryRoom    = "multiplayer"
	categoryGeneral = "general"
)

func (h *Handler) builtins() []*Command {
	return []*Command{
		{Name: "status", Category: categoryPark, Description: "Show the state of the park.", MaxArgs: 0, Run: h.status},
		{Name: "speed", Category: categoryPark, Usage: "<0-3>", Description: "Set the simulation speed. 0 pauses the park.", MinArgs: 1, MaxArgs: 1, Run: h.speed},
		{Name: "fund", Category: categoryPark, Usage: "<percent>", Description: "Set marketing funding as a percentage of the full budget.", MinArgs: 1, MaxArgs: 1, Run: h.fund},
		{Name: "entry", Category: categoryPark, Usage: "<price>", Description: "Set the park entry price.", MinArgs: 1, MaxArgs: 1, Run: h.entry},
		{Name: "rename", Category: categoryPark, Usage: "<name>", Description: "Rename the park.", MinArgs: 1, MaxArgs: -1, Run: h.rename},

		{Name: "build", Category: categoryRides, Usage: "[<kind> <x> <y> [name]]", Description: "Build a ride with its top-left corner at x,y. Without arguments, list what can be built.", MaxArgs: -1, Run: h.build},
		{Name: "rides", Category: categoryRides, Description: "List the park's rides.", MaxArgs: 0, Run: h.rides},
		{Name: "demolish", Category: categoryRides, Usage: "<ride>", Description: "Tear down a ride.", MinArgs: 1, MaxArgs: -1, Run: h.demolish},
		{Name: "price", Category: categoryRides, Usage: "<ride> <price>", Description: "Set what a ride charges.", MinArgs: 2, MaxArgs: -1, Run: h.price},
		{Name: "open", Category: categoryRides, Usage: "<ride>", Description: "Open a ride to guests.", MinArgs: 1, MaxArgs: -1, Run: h.openRide},
		{Name: "close", Category: categoryRides, Usage: "<ride>", Description: "Close a ride. Guests in line leave the queue.", MinArgs: 1, MaxArgs: -1, Run: h.closeRide},

		{Name: "hire", Category: categoryStaff, Usage: "<handyman|mechanic|entertainer>", Description: "Hire a staff member.", MinArgs: 1, MaxArgs: 1, Run: h.hire},
		{Name: "fire", Category: categoryStaff, Usage: "<staff>", Description: "Let a staff member go.", MinArgs: 1, MaxArgs: 1, Run: h.fire},
		{Name: "staff", Category: categoryStaff, Description: "List the park's staff.", MaxArgs: 0, Run: h.staff},

		{Name: "plant", Category: categoryScenery, Usage: "<kind> <x> <y>", Description: "Place a path, tree, flowers, fence or bench.", MinArgs: 3, MaxArgs: 3, Run: h.plant},
		{Name: "clear", Category: categoryScenery, Usage: "<x> <y>", Description: "Remove everything placed on a tile.", MinArgs: 2, MaxArgs: 2, Run: h.clear},

		{Name: "host", Category: categoryRoom, Usage: "[room name]", Description: "Open a room other players can join.", MaxArgs: -1, Run: h.host},
		{Name: "join", Category: categoryRoom, Usage: "<code>", Description: "Join another player's room. Their park replaces yours.", MinArgs: 1, MaxArgs: 1, Run: h.join},
		{Name: "leave", Category: categoryRoom, Description: "Leave the current room. The park keeps running.", MaxArgs: 0, Run: h.leave},
		{Name: "room", Category: categoryRoom, Description: "Show the connection and who is in the room.", MaxArgs: 0, Run: h.room},

		{Name: "save", Category: categoryGeneral, Usage: "[slot]", Description: "Save the park.", MaxArgs: 1, Run: h.save},
		{Name: "saves", Category: categoryGeneral, Description: "List saved parks.", MaxArgs: 0, Run: h.saves},
		{Name: "help", Category: categoryGeneral, Usage: "[command]", Description: "List commands or describe one.", MaxArgs: 1, Run: h.help},
		{Name: "quit", Category: categoryGeneral, Description: "Close this console. The park keeps running.", MaxArgs: 0, Run: h.quit},
	}
}

func (h *Handler) show(s *Session, name string, data any) error {
	out, err := render(name, data)
	if err != nil {
		return err
	}
	return s.Print(out)
}

// dispatch builds an action for the local player and applies it, turning
// rule violations into messages for the operator.
func (h *Handler) dispatch(ctx context.Context, s *Session, build func(originator string) (actions.Action, error), done string) error {
	a, err := build(h.game.Self().ID)
	if err != nil {
		return NewUserError(err.Error())
	}

	err = h.game.Dispatch(ctx, a)
	var invalid *actions.InvalidError
	switch {
	case err == nil:
		return s.Println(done)
	case errors.As(err, &invalid):
		return NewUserError(display.Capitalize(invalid.Message) + ".")
	case errors.Is(err, actions.ErrUnknownAction):
		return NewUserError(err.Error())
	default:
		return fmt.Errorf("dispatching %s: %w", a.Type, err)
	}
}

func parseInt(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, userErrorf("%s must be a whole number, got %q.", display.Capitalize(name), raw)
	}
	return n, nil
}

func parseFloat(name, raw string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimPrefix(raw, "$"), 64)
	if err != nil {
		return 0, userErrorf("%s must be a number, got %q.", display.Capitalize(name), raw)
	}
	return f, nil
}

func parseTile(rawX, rawY string) (int, int, error) {
	x, err := parseInt("x", rawX)
	if err != nil {
		return 0, 0, err
	}
	y, err := parseInt("y", rawY)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (h *Handler) status(_ context.Context, s *Session, _ []string) error {
	return h.show(s, "status", statusView{
		Park:        h.game.Snapshot(),
		Room:        h.game.Status(),
		Multiplayer: h.game.Multiplayer(),
	})
}

func (h *Handler) speed(ctx context.Context, s *Session, args []string) error {
	speed, err := parseInt("speed", args[0])
	if err != nil {
		return err
	}
	done := fmt.Sprintf("Speed set to %dx.", speed)
	if speed == 0 {
		done = "The park is paused."
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewSetSpeed(o, speed)
	}, done)
}

func (h *Handler) fund(ctx context.Context, s *Session, args []string) error {
	pct, err := parseFloat("funding", strings.TrimSuffix(args[0], "%"))
	if err != nil {
		return err
	}
	funding := pct / 100
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewSetFunding(o, funding)
	}, fmt.Sprintf("Marketing funding set to %s.", display.Percent(funding)))
}

func (h *Handler) entry(ctx context.Context, s *Session, args []string) error {
	price, err := parseFloat("price", args[0])
	if err != nil {
		return err
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewSetEntryPrice(o, price)
	}, fmt.Sprintf("Entry now costs %s.", display.Money(price)))
}

func (h *Handler) rename(ctx context.Context, s *Session, args []string) error {
	name := strings.Join(args, " ")
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewRenamePark(o, name)
	}, fmt.Sprintf("The park is now called %s.", name))
}

func (h *Handler) build(ctx context.Context, s *Session, args []string) error {
	if len(args) == 0 {
		return h.show(s, "catalog", actions.Rides())
	}
	if len(args) < 3 {
		return NewUserError("Usage: build <kind> <x> <y> [name]")
	}

	kind := strings.ToLower(args[0])
	x, y, err := parseTile(args[1], args[2])
	if err != nil {
		return err
	}
	name := strings.Join(args[3:], " ")

	label := name
	if label == "" {
		label = "a " + kind
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewPlaceRide(o, kind, name, x, y)
	}, fmt.Sprintf("Construction of %s has started at %d,%d. It opens once testing is done.", label, x, y))
}

func (h *Handler) rides(_ context.Context, s *Session, _ []string) error {
	return h.show(s, "rides", rideViews(h.game.Snapshot()))
}

// rideAction resolves the ride named by args and dispatches the action built for it.
func (h *Handler) rideAction(ctx context.Context, s *Session, args []string, build func(o, rideID string) (actions.Action, error), done string) error {
	r, err := resolveRide(h.game.Snapshot(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return build(o, r.ID)
	}, fmt.Sprintf(done, r.Name))
}

func (h *Handler) demolish(ctx context.Context, s *Session, args []string) error {
	return h.rideAction(ctx, s, args, actions.NewRemoveRide, "%s has been demolished.")
}

func (h *Handler) openRide(ctx context.Context, s *Session, args []string) error {
	return h.rideAction(ctx, s, args, actions.NewOpenRide, "%s is open.")
}

func (h *Handler) closeRide(ctx context.Context, s *Session, args []string) error {
	return h.rideAction(ctx, s, args, actions.NewCloseRide, "%s is closed.")
}

func (h *Handler) price(ctx context.Context, s *Session, args []string) error {
	last := len(args) - 1
	price, err := parseFloat("price", args[last])
	if err != nil {
		return err
	}
	return h.rideAction(ctx, s, args[:last], func(o, rideID string) (actions.Action, error) {
		return actions.NewSetRidePrice(o, rideID, price)
	}, "%s now costs "+display.Money(price)+".")
}

func (h *Handler) hire(ctx context.Context, s *Session, args []string) error {
	var role park.StaffRole
	if err := role.UnmarshalText([]byte(strings.ToLower(args[0]))); err != nil {
		return userErrorf("%q is not a job here. Try handyman, mechanic or entertainer.", args[0])
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewHireStaff(o, role)
	}, fmt.Sprintf("Hired a %s for %s a day.", role, display.Money(role.Wage())))
}

func (h *Handler) fire(ctx context.Context, s *Session, args []string) error {
	st, err := resolveStaff(h.game.Snapshot(), args[0])
	if err != nil {
		return err
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewFireStaff(o, st.ID)
	}, fmt.Sprintf("The %s %s has been let go.", st.Role, shortID(st.ID)))
}

func (h *Handler) staff(_ context.Context, s *Session, _ []string) error {
	return h.show(s, "staff", staffViews(h.game.Snapshot()))
}

func (h *Handler) plant(ctx context.Context, s *Session, args []string) error {
	kind := strings.ToLower(args[0])
	x, y, err := parseTile(args[1], args[2])
	if err != nil {
		return err
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewPlaceScenery(o, kind, x, y)
	}, fmt.Sprintf("Placed %s at %d,%d.", kind, x, y))
}

func (h *Handler) clear(ctx context.Context, s *Session, args []string) error {
	x, y, err := parseTile(args[0], args[1])
	if err != nil {
		return err
	}
	return h.dispatch(ctx, s, func(o string) (actions.Action, error) {
		return actions.NewRemoveScenery(o, x, y)
	}, fmt.Sprintf("Cleared %d,%d.", x, y))
}

// roomError turns a failed room operation into a message. Only a stopped
// park ends the session.
func roomError(verb string, err error) error {
	switch {
	case errors.Is(err, session.ErrStopped):
		return err
	case errors.Is(err, session.ErrOffline):
		return NewUserError("Multiplayer is not configured for this park.")
	case errors.Is(err, multiplayer.ErrAlreadyInRoom):
		return NewUserError("You are already in a room. Leave it first.")
	case errors.Is(err, multiplayer.ErrNotInRoom):
		return NewUserError("You are not in a room.")
	case errors.Is(err, room.ErrInvalidCode):
		return NewUserError("Room codes are six letters or digits.")
	case errors.Is(err, multiplayer.ErrJoinTimeout):
		return NewUserError("Nobody answered. Check the room code and try again.")
	default:
		return userErrorf("Could not %s: %v", verb, err)
	}
}

func (h *Handler) host(ctx context.Context, s *Session, args []string) error {
	name := strings.Join(args, " ")
	if name == "" {
		name = h.game.Snapshot().Name
	}
	code, err := h.game.Host(ctx, name)
	if err != nil {
		return roomError("host", err)
	}
	return s.Println(fmt.Sprintf("Hosting %s. Other players can join with code %s.", name, code))
}

func (h *Handler) join(ctx context.Context, s *Session, args []string) error {
	code, err := room.Validate(args[0])
	if err != nil {
		return roomError("join", err)
	}
	data, err := h.game.Join(ctx, code)
	if err != nil {
		return roomError("join", err)
	}
	return s.Println(fmt.Sprintf("Joined %s with %d player(s). You are now running %s.",
		data.Code, len(data.Players), h.game.Snapshot().Name))
}

func (h *Handler) leave(ctx context.Context, s *Session, _ []string) error {
	if err := h.game.Leave(ctx); err != nil {
		return roomError("leave", err)
	}
	return s.Println("You left the room. Your park keeps running.")
}

func (h *Handler) room(_ context.Context, s *Session, _ []string) error {
	if !h.game.Multiplayer() {
		return roomError("show the room", session.ErrOffline)
	}
	return h.show(s, "room", roomView{Status: h.game.Status(), Self: h.game.Self()})
}

func (h *Handler) save(ctx context.Context, s *Session, args []string) error {
	var slot string
	if len(args) > 0 {
		slot = args[0]
		if err := storage.ValidateID(slot); err != nil {
			return userErrorf("Bad slot name: %v.", err)
		}
	}

	err := h.game.Save(ctx, slot)
	switch {
	case errors.Is(err, session.ErrNoStore):
		return NewUserError("Saving is not configured for this park.")
	case err != nil:
		return userErrorf("Save failed: %v", err)
	}

	if slot == "" {
		return s.Println("Park saved.")
	}
	return s.Println(fmt.Sprintf("Park saved to %s.", slot))
}

func (h *Handler) saves(ctx context.Context, s *Session, _ []string) error {
	slots, err := h.game.Saves(ctx)
	switch {
	case errors.Is(err, session.ErrNoStore):
		return NewUserError("Saving is not configured for this park.")
	case err != nil:
		return userErrorf("Listing saves failed: %v", err)
	}
	return h.show(s, "saves", slots)
}

func (h *Handler) help(_ context.Context, s *Session, args []string) error {
	if len(args) > 0 {
		c, ok := h.commands[strings.ToLower(args[0])]
		if !ok {
			return userErrorf("Command %q is unknown.", args[0])
		}
		return s.Println(fmt.Sprintf("%s: %s\nUsage: %s", c.Name, c.Description, usage(c)))
	}

	groups := make(map[string][]string)
	for _, c := range h.Commands() {
		groups[c.Category] = append(groups[c.Category], c.Name)
	}
	categories := make([]string, 0, len(groups))
	for cat := range groups {
		categories = append(categories, cat)
	}
	slices.Sort(categories)

	lines := []string{"Available commands:"}
	for _, cat := range categories {
		lines = append(lines, display.Indent(display.Capitalize(cat)+": "+strings.Join(groups[cat], ", "), 2, s.width))
	}
	lines = append(lines, "Type help <command> for details.")
	return s.Println(strings.Join(lines, "\n"))
}

func (h *Handler) quit(_ context.Context, s *Session, _ []string) error {
	s.quit = true
	return s.Println("Goodbye!")
}
