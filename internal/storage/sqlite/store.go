// Package sqlite keeps park save slots in a single SQLite database file.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pixil98/go-park/internal/park"
	"github.com/pixil98/go-park/internal/storage"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// savedPark is one row per save slot.
type savedPark struct {
	Slot      string `gorm:"primaryKey;size:64"`
	Park      string `gorm:"size:64"`
	Tick      uint64
	Snapshot  string
	Meta      datatypes.JSON
	SavedAt   time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (savedPark) TableName() string {
	return "saved_parks"
}

func (r savedPark) info() (storage.SlotInfo, error) {
	info := storage.SlotInfo{
		Slot:    r.Slot,
		Park:    r.Park,
		Tick:    r.Tick,
		SavedAt: r.SavedAt,
	}
	if len(r.Meta) > 0 {
		if err := json.Unmarshal(r.Meta, &info.Meta); err != nil {
			return info, fmt.Errorf("decoding meta for %s: %w", r.Slot, err)
		}
	}
	return info, nil
}

// Store implements storage.SnapshotStore on SQLite via gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var _ storage.SnapshotStore = (*Store)(nil)

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&savedPark{}); err != nil {
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Save(ctx context.Context, slot string, w park.WorldState, meta storage.Meta) error {
	if err := storage.ValidateID(slot); err != nil {
		return fmt.Errorf("saving %s: %w", slot, err)
	}

	snap, err := park.Encode(w)
	if err != nil {
		return fmt.Errorf("saving %s: %w", slot, err)
	}

	row := savedPark{
		Slot:     slot,
		Park:     w.Name,
		Tick:     w.Tick,
		Snapshot: snap,
		SavedAt:  s.now(),
	}
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("saving %s: %w", slot, err)
		}
		row.Meta = datatypes.JSON(raw)
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"park", "tick", "snapshot", "meta", "saved_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving %s: %w", slot, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, slot string) (park.WorldState, error) {
	var row savedPark
	err := s.db.WithContext(ctx).Where("slot = ?", slot).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return park.WorldState{}, fmt.Errorf("%w: %s", storage.ErrNotFound, slot)
	}
	if err != nil {
		return park.WorldState{}, fmt.Errorf("loading %s: %w", slot, err)
	}

	w, err := park.Decode(row.Snapshot)
	if err != nil {
		return park.WorldState{}, fmt.Errorf("loading %s: %w", slot, err)
	}
	return w, nil
}

// List returns every save, most recent first.
func (s *Store) List(ctx context.Context) ([]storage.SlotInfo, error) {
	var rows []savedPark
	err := s.db.WithContext(ctx).
		Select("slot", "park", "tick", "meta", "saved_at").
		Order("saved_at DESC").Order("slot").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}

	out := make([]storage.SlotInfo, 0, len(rows))
	for _, r := range rows {
		info, err := r.info()
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Delete removes a save slot. Deleting a missing slot is not an error.
func (s *Store) Delete(ctx context.Context, slot string) error {
	err := s.db.WithContext(ctx).Where("slot = ?", slot).Delete(&savedPark{}).Error
	if err != nil {
		return fmt.Errorf("deleting %s: %w", slot, err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
