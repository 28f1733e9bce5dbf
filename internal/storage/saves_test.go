package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-testutil"
)

func TestSaves_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	saves, err := NewSaves(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := park.New(park.Options{Name: "Saved Park", Seed: 21})
	w.Speed = 2
	for range 200 {
		w = park.Advance(w, 0.5)
	}

	var meta Meta
	if err := meta.Set("player", "alice"); err != nil {
		t.Fatalf("setting meta: %v", err)
	}
	if err := saves.Save(context.Background(), "autosave", w, meta); err != nil {
		t.Fatalf("saving: %v", err)
	}

	reopened, err := NewSaves(dir)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	got, err := reopened.Load(context.Background(), "autosave")
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	if !reflect.DeepEqual(got, w) {
		t.Error("loaded park differs from the saved one")
	}

	slots, err := reopened.List(context.Background())
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	testutil.AssertEqual(t, "slots", len(slots), 1)
	testutil.AssertEqual(t, "slot", slots[0].Slot, "autosave")
	testutil.AssertEqual(t, "park", slots[0].Park, "Saved Park")
	testutil.AssertEqual(t, "tick", slots[0].Tick, w.Tick)

	var player string
	found, err := slots[0].Meta.Get("player", &player)
	if err != nil {
		t.Fatalf("reading meta: %v", err)
	}
	testutil.AssertEqual(t, "meta found", found, true)
	testutil.AssertEqual(t, "player", player, "alice")
}

func TestSaves_LoadMissing(t *testing.T) {
	saves, err := NewSaves(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = saves.Load(context.Background(), "nope")
	testutil.AssertEqual(t, "not found", errors.Is(err, ErrNotFound), true)
}

func TestSaves_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "broken.json", Asset[*SavedPark]{
		Version:    1,
		Identifier: "broken",
		Spec:       &SavedPark{Park: "Broken", Snapshot: "p1.not-base64!"},
	})

	saves, err := NewSaves(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := saves.Load(context.Background(), "broken")
	testutil.AssertEqual(t, "bad snapshot", errors.Is(err, park.ErrBadSnapshot), true)
	testutil.AssertEqual(t, "zero park", got.Name, "")
}

func TestSaves_ListOrder(t *testing.T) {
	saves, err := NewSaves(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, slot := range []string{"old", "new", "middle"} {
		at := map[string]time.Duration{"old": 0, "middle": time.Hour, "new": 2 * time.Hour}[slot]
		saves.now = func() time.Time { return base.Add(at) }
		if err := saves.Save(context.Background(), slot, park.New(park.Options{Seed: uint64(i)}), nil); err != nil {
			t.Fatalf("saving %s: %v", slot, err)
		}
	}

	slots, err := saves.List(context.Background())
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = s.Slot
	}
	if !reflect.DeepEqual(names, []string{"new", "middle", "old"}) {
		t.Errorf("order = %v", names)
	}

	if err := saves.Delete(context.Background(), "middle"); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	slots, _ = saves.List(context.Background())
	testutil.AssertEqual(t, "after delete", len(slots), 2)
}

func TestSavedPark_Validate(t *testing.T) {
	tests := map[string]struct {
		save   *SavedPark
		expErr string
	}{
		"valid":       {save: &SavedPark{Snapshot: "p1.abc"}},
		"nil":         {save: nil, expErr: "save is empty"},
		"wrong codec": {save: &SavedPark{Snapshot: "v9.abc"}, expErr: "not in a known format"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.save.Validate()
			if tt.expErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestMeta(t *testing.T) {
	var m Meta
	var out string

	found, err := m.Get("missing", &out)
	testutil.AssertEqual(t, "found on nil", found, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = m.Set("bad", make(chan int))
	testutil.AssertErrorContains(t, err, `marshalling meta "bad"`)

	if err := m.Set("room", map[string]int{"players": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found, err = m.Get("room", &out)
	testutil.AssertEqual(t, "found", found, true)
	testutil.AssertErrorContains(t, err, `unmarshalling meta "room"`)
}
