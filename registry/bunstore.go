package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/padraicbc/chartapi/models"
)

// BunStore is the PostgreSQL-backed Store.
type BunStore struct {
	db *bun.DB
}

// NewBunStore wraps a bun connection as a Store.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

func (s *BunStore) ListHorses(ctx context.Context) ([]models.Horse, error) {
	var horses []models.Horse
	if err := s.db.NewSelect().Model(&horses).OrderExpr("h.horse_id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return horses, nil
}

func (s *BunStore) GetHorse(ctx context.Context, id int) (*models.Horse, error) {
	h := &models.Horse{}
	err := s.db.NewSelect().Model(h).Where("horse_id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

func (s *BunStore) SearchHorses(ctx context.Context, fragment string) ([]models.Horse, error) {
	var horses []models.Horse
	err := s.db.NewSelect().Model(&horses).
		Where("name ILIKE ?", fmt.Sprintf("%%%s%%", fragment)).
		OrderExpr("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return horses, nil
}

func (s *BunStore) InsertHorse(ctx context.Context, h *models.Horse) error {
	h.Version = 0
	if _, err := s.db.NewInsert().Model(h).Exec(ctx); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key value") {
			return ErrNameTaken
		}
		return err
	}
	return nil
}

// UpdateHorse writes the row only if the stored version still matches,
// then bumps it. A missed match is a concurrent-writer conflict.
func (s *BunStore) UpdateHorse(ctx context.Context, h *models.Horse) error {
	res, err := s.db.NewUpdate().Model(h).
		Set("name = ?", h.Name).
		Set("owner = ?", h.Owner).
		Set("country = ?", h.Country).
		Set("historic = ?", h.Historic).
		Set("aliases = ?", pgdialect.Array(h.Aliases)).
		Set("starts = ?", h.Starts).
		Set("last_race_date = ?", h.LastRaceDate).
		Set("best_pace_five = ?", h.BestPaceFive).
		Set("version = version + 1").
		Where("horse_id = ?", h.HorseID).
		Where("version = ?", h.Version).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, gerr := s.GetHorse(ctx, h.HorseID); gerr != nil {
			return gerr
		}
		return ErrVersionConflict
	}
	h.Version++
	return nil
}

func (s *BunStore) DeleteHorse(ctx context.Context, id int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NewDelete().Model((*models.HistoryEntry)(nil)).Where("horse_id = ?", id).Exec(ctx); err != nil {
		return err
	}
	res, err := tx.NewDelete().Model((*models.Horse)(nil)).Where("horse_id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (s *BunStore) History(ctx context.Context, horseID int) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := s.db.NewSelect().Model(&entries).
		Where("horse_id = ?", horseID).
		OrderExpr("date DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ReplaceHistory swaps a horse's full history in one transaction.
func (s *BunStore) ReplaceHistory(ctx context.Context, horseID int, entries []models.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.NewDelete().Model((*models.HistoryEntry)(nil)).Where("horse_id = ?", horseID).Exec(ctx); err != nil {
		return err
	}
	for i := range entries {
		entries[i].ID = 0
		entries[i].HorseID = horseID
	}
	if len(entries) > 0 {
		if _, err := tx.NewInsert().Model(&entries).Exec(ctx); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *BunStore) ListHistoryKeys(ctx context.Context) ([]HistoryKey, error) {
	type row struct {
		HorseID int    `bun:"horse_id"`
		Date    string `bun:"date"`
		Track   string `bun:"track"`
	}
	var rows []row
	err := s.db.NewSelect().
		TableExpr("history").
		ColumnExpr("horse_id, date::text AS date, track").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	keys := make([]HistoryKey, len(rows))
	for i, r := range rows {
		keys[i] = HistoryKey{HorseID: r.HorseID, Date: r.Date, Track: r.Track}
	}
	return keys, nil
}
