// Package registry maps observed horse-name spellings to canonical
// registry entries and maintains that mapping through merge, rename and
// unmerge. All mutation flows through Service; the alias partition (every
// spelling belongs to at most one entry) is enforced there.
package registry

import (
	"context"
	"errors"

	"github.com/padraicbc/chartapi/models"
)

var (
	// ErrNotFound means no registry entry matches the given name or id.
	ErrNotFound = errors.New("registry: horse not found")
	// ErrVersionConflict means a concurrent writer updated the row first.
	ErrVersionConflict = errors.New("registry: version conflict")
	// ErrAliasClaimed means a name already belongs to another entry's alias set.
	ErrAliasClaimed = errors.New("registry: alias already claimed by another horse")
	// ErrNameTaken means the requested canonical name already exists.
	ErrNameTaken = errors.New("registry: canonical name already exists")
	// ErrDuplicateEntry means a history entry for (horse, date, track) already exists.
	ErrDuplicateEntry = errors.New("registry: duplicate history entry for horse/date/track")
)

// HistoryKey identifies one history entry for duplicate checking.
type HistoryKey struct {
	HorseID int
	Date    string
	Track   string
}

// Store is the persistence boundary for the registry and per-horse
// history. UpdateHorse is a compare-and-swap on Horse.Version; every
// read-modify-write sequence goes through it.
type Store interface {
	ListHorses(ctx context.Context) ([]models.Horse, error)
	GetHorse(ctx context.Context, id int) (*models.Horse, error)
	SearchHorses(ctx context.Context, fragment string) ([]models.Horse, error)
	InsertHorse(ctx context.Context, h *models.Horse) error
	UpdateHorse(ctx context.Context, h *models.Horse) error
	DeleteHorse(ctx context.Context, id int) error

	History(ctx context.Context, horseID int) ([]models.HistoryEntry, error)
	ReplaceHistory(ctx context.Context, horseID int, entries []models.HistoryEntry) error
	ListHistoryKeys(ctx context.Context) ([]HistoryKey, error)
}
