package actions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-park/internal/park"
)

// MaxPayloadBytes bounds the encoded payload of a single action.
const MaxPayloadBytes = 4 << 10

// Type names a kind of player action.
type Type string

const (
	TypeSetSpeed      Type = "setSpeed"
	TypeSetFunding    Type = "setFunding"
	TypeSetEntryPrice Type = "setEntryPrice"
	TypeSetRidePrice  Type = "setRidePrice"
	TypePlaceRide     Type = "placeRide"
	TypeRemoveRide    Type = "removeRide"
	TypeOpenRide      Type = "openRide"
	TypeCloseRide     Type = "closeRide"
	TypeHireStaff     Type = "hireStaff"
	TypeFireStaff     Type = "fireStaff"
	TypePlaceScenery  Type = "placeScenery"
	TypeRemoveScenery Type = "removeScenery"
	TypeRenamePark    Type = "renamePark"
)

// Action is a player's intent to change the park. It is the unit of
// replication between peers and must not be modified after creation.
type Action struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Originator string          `json:"originator"`
	Timestamp  int64           `json:"timestamp"`
}

// New builds an action with a fresh id and the current time.
func New(t Type, originator string, payload any) (Action, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return Action{}, fmt.Errorf("marshalling %s payload: %w", t, err)
		}
		raw = b
	}
	a := Action{
		ID:         uuid.NewString(),
		Type:       t,
		Payload:    raw,
		Originator: originator,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// Validate checks the envelope without looking at the payload contents.
func (a Action) Validate() error {
	if a.ID == "" {
		return invalid(a.Type, "missing id")
	}
	if a.Type == "" {
		return invalid(a.Type, "missing type")
	}
	if len(a.Payload) > MaxPayloadBytes {
		return invalid(a.Type, fmt.Sprintf("payload is %d bytes, limit is %d", len(a.Payload), MaxPayloadBytes))
	}
	return nil
}

type speedPayload struct {
	Speed int `json:"speed"`
}

type fundingPayload struct {
	Funding float64 `json:"funding"`
}

type pricePayload struct {
	Price float64 `json:"price"`
}

type ridePricePayload struct {
	RideID string  `json:"rideId"`
	Price  float64 `json:"price"`
}

type placeRidePayload struct {
	RideID string `json:"rideId"`
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

type rideRefPayload struct {
	RideID string `json:"rideId"`
}

type hirePayload struct {
	StaffID string         `json:"staffId"`
	Role    park.StaffRole `json:"role"`
}

type staffRefPayload struct {
	StaffID string `json:"staffId"`
}

type sceneryPayload struct {
	Kind string `json:"kind"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type tilePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type renamePayload struct {
	Name string `json:"name"`
}

// NewSetSpeed changes the simulation speed. Zero pauses the park.
func NewSetSpeed(originator string, speed int) (Action, error) {
	return New(TypeSetSpeed, originator, speedPayload{Speed: speed})
}

// NewSetFunding sets the marketing funding level in [0,1].
func NewSetFunding(originator string, funding float64) (Action, error) {
	return New(TypeSetFunding, originator, fundingPayload{Funding: funding})
}

func NewSetEntryPrice(originator string, price float64) (Action, error) {
	return New(TypeSetEntryPrice, originator, pricePayload{Price: price})
}

func NewSetRidePrice(originator, rideID string, price float64) (Action, error) {
	return New(TypeSetRidePrice, originator, ridePricePayload{RideID: rideID, Price: price})
}

// NewPlaceRide builds a ride placement. The ride id is minted here so every
// peer applying the action creates the same entity.
func NewPlaceRide(originator, kind, name string, x, y int) (Action, error) {
	return New(TypePlaceRide, originator, placeRidePayload{
		RideID: "ride-" + uuid.NewString(),
		Kind:   kind,
		Name:   name,
		X:      x,
		Y:      y,
	})
}

func NewRemoveRide(originator, rideID string) (Action, error) {
	return New(TypeRemoveRide, originator, rideRefPayload{RideID: rideID})
}

func NewOpenRide(originator, rideID string) (Action, error) {
	return New(TypeOpenRide, originator, rideRefPayload{RideID: rideID})
}

func NewCloseRide(originator, rideID string) (Action, error) {
	return New(TypeCloseRide, originator, rideRefPayload{RideID: rideID})
}

// NewHireStaff builds a hire with a freshly minted staff id.
func NewHireStaff(originator string, role park.StaffRole) (Action, error) {
	return New(TypeHireStaff, originator, hirePayload{StaffID: "staff-" + uuid.NewString(), Role: role})
}

func NewFireStaff(originator, staffID string) (Action, error) {
	return New(TypeFireStaff, originator, staffRefPayload{StaffID: staffID})
}

func NewPlaceScenery(originator, kind string, x, y int) (Action, error) {
	return New(TypePlaceScenery, originator, sceneryPayload{Kind: kind, X: x, Y: y})
}

func NewRemoveScenery(originator string, x, y int) (Action, error) {
	return New(TypeRemoveScenery, originator, tilePayload{X: x, Y: y})
}

func NewRenamePark(originator, name string) (Action, error) {
	return New(TypeRenamePark, originator, renamePayload{Name: name})
}
