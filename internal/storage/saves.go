package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pixil98/go-park/internal/park"
)

var ErrNotFound = errors.New("save not found")

// SnapshotStore persists parks into named save slots.
type SnapshotStore interface {
	Save(ctx context.Context, slot string, w park.WorldState, meta Meta) error
	Load(ctx context.Context, slot string) (park.WorldState, error)
	List(ctx context.Context) ([]SlotInfo, error)
}

// SlotInfo describes a save without decoding it.
type SlotInfo struct {
	Slot    string
	Park    string
	Tick    uint64
	SavedAt time.Time
	Meta    Meta
}

// Meta carries free-form facts about a save, such as which player wrote it
// and which room they were in.
type Meta map[string]json.RawMessage

// Set stores v under key after marshalling it to JSON.
func (m *Meta) Set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling meta %q: %w", key, err)
	}
	if *m == nil {
		*m = Meta{}
	}
	(*m)[key] = b
	return nil
}

// Get unmarshals the value under key into out and reports whether it was present.
func (m Meta) Get(key string, out any) (bool, error) {
	raw, ok := m[key]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("unmarshalling meta %q: %w", key, err)
	}
	return true, nil
}

// SavedPark is the stored form of one save slot.
type SavedPark struct {
	Park     string `json:"park"`
	Tick     uint64 `json:"tick"`
	SavedAt  int64  `json:"saved_at"`
	Snapshot string `json:"snapshot"`
	Meta     Meta   `json:"meta,omitempty"`
}

func (s *SavedPark) Validate() error {
	if s == nil {
		return fmt.Errorf("save is empty")
	}
	if !strings.HasPrefix(s.Snapshot, "p1.") {
		return fmt.Errorf("snapshot is not in a known format")
	}
	return nil
}

func (s *SavedPark) info(slot string) SlotInfo {
	return SlotInfo{
		Slot:    slot,
		Park:    s.Park,
		Tick:    s.Tick,
		SavedAt: time.UnixMilli(s.SavedAt),
		Meta:    s.Meta,
	}
}

// NewSavedPark encodes w for storage.
func NewSavedPark(w park.WorldState, meta Meta, now time.Time) (*SavedPark, error) {
	snap, err := park.Encode(w)
	if err != nil {
		return nil, err
	}
	return &SavedPark{
		Park:     w.Name,
		Tick:     w.Tick,
		SavedAt:  now.UnixMilli(),
		Snapshot: snap,
		Meta:     meta,
	}, nil
}

// Saves keeps save slots as JSON asset files in a directory.
type Saves struct {
	store Storer[*SavedPark]
	now   func() time.Time
}

var _ SnapshotStore = (*Saves)(nil)

func NewSaves(dir string) (*Saves, error) {
	fs, err := NewFileStore[*SavedPark](dir)
	if err != nil {
		return nil, fmt.Errorf("opening saves in %s: %w", dir, err)
	}
	return &Saves{store: fs, now: time.Now}, nil
}

func (s *Saves) Save(_ context.Context, slot string, w park.WorldState, meta Meta) error {
	rec, err := NewSavedPark(w, meta, s.now())
	if err != nil {
		return fmt.Errorf("saving %s: %w", slot, err)
	}
	if err := s.store.Save(slot, rec); err != nil {
		return fmt.Errorf("saving %s: %w", slot, err)
	}
	return nil
}

func (s *Saves) Load(_ context.Context, slot string) (park.WorldState, error) {
	rec, ok := s.store.Get(slot)
	if !ok {
		return park.WorldState{}, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	w, err := park.Decode(rec.Snapshot)
	if err != nil {
		return park.WorldState{}, fmt.Errorf("loading %s: %w", slot, err)
	}
	return w, nil
}

// List returns every save, most recent first.
func (s *Saves) List(_ context.Context) ([]SlotInfo, error) {
	all := s.store.GetAll()
	out := make([]SlotInfo, 0, len(all))
	for slot, rec := range all {
		out = append(out, rec.info(slot))
	}
	sortSlots(out)
	return out, nil
}

// Delete removes a save slot.
func (s *Saves) Delete(_ context.Context, slot string) error {
	return s.store.Delete(slot)
}

func sortSlots(slots []SlotInfo) {
	slices.SortFunc(slots, func(a, b SlotInfo) int {
		if c := b.SavedAt.Compare(a.SavedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Slot, b.Slot)
	})
}
