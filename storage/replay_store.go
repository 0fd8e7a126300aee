// storage/replay_store.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"rps-arena/models"
	"rps-arena/services"
)

// OpenPostgres connects to the archive database at dsn.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a file-backed archive.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite archive %s: %w", path, err)
	}
	return db, nil
}

// ReplayStore archives replays as rows. Rows are written once and never
// updated.
type ReplayStore struct {
	db *gorm.DB
}

func NewReplayStore(db *gorm.DB) (*ReplayStore, error) {
	if err := db.AutoMigrate(&models.ReplayRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &ReplayStore{db: db}, nil
}

// Archive inserts r. Archiving the same replay twice is a no-op.
func (s *ReplayStore) Archive(ctx context.Context, r models.Replay) error {
	rec, err := models.NewReplayRecord(r)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("archive replay %s: %w", r.ID, err)
	}
	return nil
}

func (s *ReplayStore) Get(ctx context.Context, id string) (models.Replay, error) {
	var rec models.ReplayRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Replay{}, &services.NotFoundError{Kind: "replay", ID: id}
	}
	if err != nil {
		return models.Replay{}, fmt.Errorf("load replay %s: %w", id, err)
	}
	return rec.Replay()
}

// ListByTournament returns a tournament's archived replays, newest first.
func (s *ReplayStore) ListByTournament(ctx context.Context, tournamentID string) ([]models.Replay, error) {
	var recs []models.ReplayRecord
	err := s.db.WithContext(ctx).
		Where("tournament_id = ?", tournamentID).
		Order("played_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list replays of tournament %s: %w", tournamentID, err)
	}
	out := make([]models.Replay, 0, len(recs))
	for _, rec := range recs {
		r, err := rec.Replay()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Count is the number of archived rows.
func (s *ReplayStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ReplayRecord{}).Count(&n).Error
	return n, err
}
