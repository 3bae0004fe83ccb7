package ingest

import (
	"context"

	"github.com/padraicbc/chartapi/registry"
)

// Guard answers whether a (canonical identity, date, track) triple is
// already on record. It is built once from the store at batch start so
// document parsing stays free of I/O.
type Guard struct {
	keys map[registry.HistoryKey]bool
}

// NewGuard loads all existing history keys.
func NewGuard(ctx context.Context, store registry.Store) (*Guard, error) {
	keys, err := store.ListHistoryKeys(ctx)
	if err != nil {
		return nil, err
	}
	g := &Guard{keys: make(map[registry.HistoryKey]bool, len(keys))}
	for _, k := range keys {
		g.keys[k] = true
	}
	return g, nil
}

// IsDuplicate reports whether an entry for the triple already exists.
// Match confidence plays no part here: any existing entry blocks.
func (g *Guard) IsDuplicate(horseID int, date, track string) bool {
	return g.keys[registry.HistoryKey{HorseID: horseID, Date: date, Track: track}]
}
