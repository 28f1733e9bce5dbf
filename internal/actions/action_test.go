package actions

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestNew(t *testing.T) {
	a, err := NewSetSpeed("player-1", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "type", a.Type, TypeSetSpeed)
	testutil.AssertEqual(t, "originator", a.Originator, "player-1")
	testutil.AssertEqual(t, "payload", string(a.Payload), `{"speed":2}`)
	if a.ID == "" {
		t.Error("expected an id")
	}
	if a.Timestamp <= 0 {
		t.Error("expected a timestamp")
	}

	b, _ := NewSetSpeed("player-1", 2)
	if a.ID == b.ID {
		t.Error("expected distinct ids")
	}
}

func TestNew_MintsEntityIDs(t *testing.T) {
	a, err := NewPlaceRide("p", "coaster", "", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewPlaceRide("p", "coaster", "", 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var pa, pb placeRidePayload
	_ = json.Unmarshal(a.Payload, &pa)
	_ = json.Unmarshal(b.Payload, &pb)
	if !strings.HasPrefix(pa.RideID, "ride-") || pa.RideID == pb.RideID {
		t.Errorf("unexpected ride ids %q and %q", pa.RideID, pb.RideID)
	}
}

func TestAction_Validate(t *testing.T) {
	tests := map[string]struct {
		action Action
		expErr string
	}{
		"valid": {
			action: Action{ID: "a", Type: TypeSetSpeed, Payload: json.RawMessage(`{"speed":1}`)},
		},
		"missing id": {
			action: Action{Type: TypeSetSpeed},
			expErr: "missing id",
		},
		"missing type": {
			action: Action{ID: "a"},
			expErr: "missing type",
		},
		"oversized payload": {
			action: Action{ID: "a", Type: TypeRenamePark, Payload: json.RawMessage(`"` + strings.Repeat("x", MaxPayloadBytes) + `"`)},
			expErr: "limit is 4096",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
			testutil.AssertEqual(t, "invalid", IsInvalid(err), true)
		})
	}
}

func TestNew_RejectsOversizedPayload(t *testing.T) {
	_, err := NewRenamePark("p", strings.Repeat("x", MaxPayloadBytes))
	testutil.AssertErrorContains(t, err, "limit is 4096")
}

func TestAction_WireFormat(t *testing.T) {
	a := Action{
		ID:         "id-1",
		Type:       TypeSetFunding,
		Payload:    json.RawMessage(`{"funding":0.5}`),
		Originator: "player-2",
		Timestamp:  1700000000000,
	}

	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "json", string(b),
		`{"id":"id-1","type":"setFunding","payload":{"funding":0.5},"originator":"player-2","timestamp":1700000000000}`)
}
