package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-park/internal/session"
	"github.com/pixil98/go-park/internal/storage"
	"github.com/pixil98/go-park/internal/storage/sqlite"
)

type StorageDriver int

const (
	StorageDriverNone StorageDriver = iota
	StorageDriverFile
	StorageDriverSqlite
)

func (sd *StorageDriver) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "none":
		*sd = StorageDriverNone
	case "file":
		*sd = StorageDriverFile
	case "sqlite":
		*sd = StorageDriverSqlite
	default:
		return fmt.Errorf("unknown storage driver: %s", text)
	}
	return nil
}

type StorageConfig struct {
	Driver           StorageDriver `json:"driver"`
	Path             string        `json:"path"`
	Slot             string        `json:"slot"`
	AutosaveInterval string        `json:"autosave_interval"`
}

func (c *StorageConfig) validate() error {
	if c.Driver == StorageDriverNone {
		return nil
	}

	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("storage: path is required"))
	}
	if c.Slot != "" {
		if err := storage.ValidateID(c.Slot); err != nil {
			el.Add(fmt.Errorf("storage: slot: %w", err))
		}
	}
	el.Add(validDuration("storage: autosave_interval", c.AutosaveInterval, 0))

	return el.Err()
}

func (c *StorageConfig) slot() string {
	if c.Slot == "" {
		return "autosave"
	}
	return c.Slot
}

// buildStore returns a nil store when saving is disabled.
func (c *StorageConfig) buildStore() (storage.SnapshotStore, error) {
	switch c.Driver {
	case StorageDriverNone:
		return nil, nil
	case StorageDriverFile:
		s, err := storage.NewSaves(c.Path)
		if err != nil {
			return nil, fmt.Errorf("opening save directory: %w", err)
		}
		return s, nil
	case StorageDriverSqlite:
		s, err := sqlite.Open(c.Path)
		if err != nil {
			return nil, fmt.Errorf("opening save database: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %v", c.Driver)
	}
}

func (c *StorageConfig) gameOpts(store storage.SnapshotStore) []session.GameOpt {
	if store == nil {
		return nil
	}

	opts := []session.GameOpt{session.WithStore(store, c.slot())}
	if d, ok := optionalDuration(c.AutosaveInterval); ok {
		opts = append(opts, session.WithAutosaveInterval(d))
	}
	return opts
}
