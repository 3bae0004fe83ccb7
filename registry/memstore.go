package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/padraicbc/chartapi/models"
)

// MemStore is an in-memory Store used by tests and by tools that run
// without a database. It applies the same optimistic versioning rules as
// the SQL-backed store.
type MemStore struct {
	mu      sync.Mutex
	nextID  int
	horses  map[int]models.Horse
	history map[int][]models.HistoryEntry
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		nextID:  1,
		horses:  map[int]models.Horse{},
		history: map[int][]models.HistoryEntry{},
	}
}

func copyHorse(h models.Horse) models.Horse {
	h.Aliases = append([]string(nil), h.Aliases...)
	return h
}

func (m *MemStore) ListHorses(ctx context.Context) ([]models.Horse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Horse, 0, len(m.horses))
	for _, h := range m.horses {
		out = append(out, copyHorse(h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HorseID < out[j].HorseID })
	return out, nil
}

func (m *MemStore) GetHorse(ctx context.Context, id int) (*models.Horse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.horses[id]
	if !ok {
		return nil, ErrNotFound
	}
	h = copyHorse(h)
	return &h, nil
}

func (m *MemStore) SearchHorses(ctx context.Context, fragment string) ([]models.Horse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frag := strings.ToLower(fragment)
	var out []models.Horse
	for _, h := range m.horses {
		if strings.Contains(strings.ToLower(h.Name), frag) {
			out = append(out, copyHorse(h))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) InsertHorse(ctx context.Context, h *models.Horse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ex := range m.horses {
		if strings.EqualFold(ex.Name, h.Name) {
			return ErrNameTaken
		}
	}
	h.HorseID = m.nextID
	m.nextID++
	h.Version = 0
	m.horses[h.HorseID] = copyHorse(*h)
	return nil
}

func (m *MemStore) UpdateHorse(ctx context.Context, h *models.Horse) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.horses[h.HorseID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != h.Version {
		return ErrVersionConflict
	}
	h.Version++
	m.horses[h.HorseID] = copyHorse(*h)
	return nil
}

func (m *MemStore) DeleteHorse(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.horses[id]; !ok {
		return ErrNotFound
	}
	delete(m.horses, id)
	delete(m.history, id)
	return nil
}

func (m *MemStore) History(ctx context.Context, horseID int) ([]models.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]models.HistoryEntry(nil), m.history[horseID]...), nil
}

func (m *MemStore) ReplaceHistory(ctx context.Context, horseID int, entries []models.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[horseID] = append([]models.HistoryEntry(nil), entries...)
	return nil
}

func (m *MemStore) ListHistoryKeys(ctx context.Context) ([]HistoryKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []HistoryKey
	for id, entries := range m.history {
		for _, e := range entries {
			keys = append(keys, HistoryKey{HorseID: id, Date: e.Date, Track: e.Track})
		}
	}
	return keys, nil
}
