package actions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pixil98/go-park/internal/park"
)

// HandlerFunc applies one action to a snapshot. Handlers must be
// deterministic and must not modify the slices reachable from w.
type HandlerFunc func(w park.WorldState, a Action) (park.WorldState, error)

// Registry maps action types to the handlers that apply them.
type Registry struct {
	handlers map[Type]HandlerFunc
}

// NewRegistry returns a registry holding every built-in action.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[Type]HandlerFunc)}

	_ = r.Register(TypeSetSpeed, handle(setSpeed))
	_ = r.Register(TypeSetFunding, handle(setFunding))
	_ = r.Register(TypeSetEntryPrice, handle(setEntryPrice))
	_ = r.Register(TypeSetRidePrice, handle(setRidePrice))
	_ = r.Register(TypePlaceRide, handle(placeRide))
	_ = r.Register(TypeRemoveRide, handle(removeRide))
	_ = r.Register(TypeOpenRide, handle(openRide))
	_ = r.Register(TypeCloseRide, handle(closeRide))
	_ = r.Register(TypeHireStaff, handle(hireStaff))
	_ = r.Register(TypeFireStaff, handle(fireStaff))
	_ = r.Register(TypePlaceScenery, handle(placeScenery))
	_ = r.Register(TypeRemoveScenery, handle(removeScenery))
	_ = r.Register(TypeRenamePark, handle(renamePark))

	return r
}

// Register adds a handler for an action type.
func (r *Registry) Register(t Type, h HandlerFunc) error {
	if t == "" {
		return fmt.Errorf("action type cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler for %q already registered", t)
	}
	r.handlers[t] = h
	return nil
}

// Types lists the registered action types in sorted order.
func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Apply runs the handler for a.Type against w. On any error the original
// snapshot is returned.
func (r *Registry) Apply(w park.WorldState, a Action) (park.WorldState, error) {
	if err := a.Validate(); err != nil {
		return w, err
	}
	h, ok := r.handlers[a.Type]
	if !ok {
		return w, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	next, err := h(w, a)
	if err != nil {
		return w, err
	}
	return next, nil
}

var builtin = NewRegistry()

// Apply runs a against w using the built-in handlers.
func Apply(w park.WorldState, a Action) (park.WorldState, error) {
	return builtin.Apply(w, a)
}

// handle adapts a typed handler by decoding the action payload into P.
func handle[P any](fn func(w park.WorldState, t Type, p P) (park.WorldState, error)) HandlerFunc {
	return func(w park.WorldState, a Action) (park.WorldState, error) {
		p, err := decode[P](a)
		if err != nil {
			return w, err
		}
		return fn(w, a.Type, p)
	}
}

func decode[P any](a Action) (P, error) {
	var p P
	if len(a.Payload) == 0 {
		return p, invalid(a.Type, "missing payload")
	}
	dec := json.NewDecoder(bytes.NewReader(a.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, invalidf(a.Type, "malformed payload: %v", err)
	}
	return p, nil
}
