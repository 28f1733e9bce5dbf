package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/storage"
)

// Restore loads the park saved in slot, or builds a new one from opts when
// there is no store or nothing has been saved yet. A save that exists but
// cannot be decoded is an error, so it is not silently overwritten.
func Restore(ctx context.Context, store storage.SnapshotStore, slot string, opts park.Options) (park.WorldState, error) {
	if store == nil {
		return park.New(opts), nil
	}

	w, err := store.Load(ctx, slot)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "starting a new park", "park", opts.Name, "slot", slot)
		return park.New(opts), nil
	}
	if err != nil {
		return park.WorldState{}, fmt.Errorf("restoring %s: %w", slot, err)
	}

	slog.InfoContext(ctx, "restored park", "park", w.Name, "slot", slot, "tick", w.Tick)
	return w, nil
}
