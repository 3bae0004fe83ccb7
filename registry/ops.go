package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/padraicbc/chartapi/models"
)

// Service owns all registry mutation. Merge, Rename and Unmerge are the
// only operations that touch alias sets, which is what keeps every alias
// bound to at most one canonical entry.
type Service struct {
	store Store
	log   *zap.Logger
}

// NewService wires a Service over a Store.
func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, log: log}
}

// Store exposes the underlying store to collaborators that only read.
func (s *Service) Store() Store { return s.store }

// Snapshot builds a read-only resolver over the current registry.
func (s *Service) Snapshot(ctx context.Context) (*Resolver, error) {
	horses, err := s.store.ListHorses(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry snapshot: %w", err)
	}
	return NewResolver(horses), nil
}

// EnsureHorse resolves a name against the live registry, auto-registering
// it as a new unresolved identity (blank owner/country, non-historic)
// when nothing matches.
func (s *Service) EnsureHorse(ctx context.Context, name string) (*models.Horse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("registry: empty horse name")
	}

	resolver, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if m, ok := resolver.Resolve(name); ok {
		return m.Horse, nil
	}

	h := &models.Horse{Name: name, Aliases: []string{}}
	if err := s.store.InsertHorse(ctx, h); err != nil {
		return nil, err
	}
	s.log.Info("auto-registered horse", zap.String("name", name), zap.Int("horseID", h.HorseID))
	return h, nil
}

// AddOrUpdate creates a horse or updates owner/country/historic on an
// existing one. The canonical name itself only changes through Rename.
func (s *Service) AddOrUpdate(ctx context.Context, in models.Horse) (*models.Horse, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("registry: horse name is required")
	}

	resolver, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := resolver.Resolve(in.Name)
	if !ok {
		h := &models.Horse{
			Name:     in.Name,
			Owner:    in.Owner,
			Country:  in.Country,
			Historic: in.Historic,
			Aliases:  []string{},
		}
		if err := s.store.InsertHorse(ctx, h); err != nil {
			return nil, err
		}
		return h, nil
	}

	h, err := s.store.GetHorse(ctx, m.Horse.HorseID)
	if err != nil {
		return nil, err
	}
	h.Owner = in.Owner
	h.Country = in.Country
	h.Historic = in.Historic
	if err := s.store.UpdateHorse(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Merge folds each named entry — its canonical name, alias set, history
// and any owner/country the primary lacks — into primary, then deletes
// the absorbed entries. A name that is an alias of an entry outside the
// merge is refused: claiming it would break the alias partition.
func (s *Service) Merge(ctx context.Context, primary string, names []string) (*models.Horse, error) {
	resolver, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	pm, ok := resolver.Resolve(primary)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, primary)
	}
	p, err := s.store.GetHorse(ctx, pm.Horse.HorseID)
	if err != nil {
		return nil, err
	}

	absorbed := map[int]*models.Horse{}
	var loose []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m, ok := resolver.Resolve(name)
		if !ok {
			// Unknown spelling: becomes a plain alias of the primary.
			loose = append(loose, name)
			continue
		}
		if m.Horse.HorseID == p.HorseID {
			continue
		}
		if !strings.EqualFold(m.Horse.Name, name) && !isMergeTarget(names, m.Horse.Name) {
			// The name belongs to some other entry's alias set and that
			// entry is not itself being merged.
			return nil, fmt.Errorf("%w: %q belongs to %q", ErrAliasClaimed, name, m.Horse.Name)
		}
		if _, seen := absorbed[m.Horse.HorseID]; !seen {
			h, err := s.store.GetHorse(ctx, m.Horse.HorseID)
			if err != nil {
				return nil, err
			}
			absorbed[m.Horse.HorseID] = h
		}
	}

	aliasSet := map[string]bool{}
	for _, a := range p.Aliases {
		aliasSet[strings.ToLower(a)] = true
	}
	addAlias := func(a string) {
		a = strings.TrimSpace(a)
		if a == "" || strings.EqualFold(a, p.Name) || aliasSet[strings.ToLower(a)] {
			return
		}
		aliasSet[strings.ToLower(a)] = true
		p.Aliases = append(p.Aliases, a)
	}

	merged, err := s.store.History(ctx, p.HorseID)
	if err != nil {
		return nil, err
	}

	for _, h := range absorbed {
		addAlias(h.Name)
		for _, a := range h.Aliases {
			addAlias(a)
		}
		if p.Owner == "" {
			p.Owner = h.Owner
		}
		if p.Country == "" {
			p.Country = h.Country
		}
		hist, err := s.store.History(ctx, h.HorseID)
		if err != nil {
			return nil, err
		}
		merged = mergeHistory(merged, hist)
	}
	for _, a := range loose {
		addAlias(a)
	}

	if err := s.store.ReplaceHistory(ctx, p.HorseID, merged); err != nil {
		return nil, err
	}
	if err := s.store.UpdateHorse(ctx, p); err != nil {
		return nil, err
	}
	for id := range absorbed {
		if err := s.store.DeleteHorse(ctx, id); err != nil {
			return nil, err
		}
	}

	s.log.Info("merged horses",
		zap.String("primary", p.Name),
		zap.Int("absorbed", len(absorbed)),
		zap.Int("aliases", len(p.Aliases)))
	return p, nil
}

func isMergeTarget(names []string, canonical string) bool {
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), canonical) {
			return true
		}
	}
	return false
}

// Rename gives a horse a new canonical name, carrying over all data and
// aliases and keeping the old name as an alias so existing history keeps
// resolving.
func (s *Service) Rename(ctx context.Context, oldName, newName string) (*models.Horse, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("registry: new name is required")
	}

	resolver, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if m, ok := resolver.Resolve(newName); ok && !strings.EqualFold(m.Horse.Name, oldName) {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, newName)
	}
	om, ok := resolver.Resolve(oldName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, oldName)
	}

	h, err := s.store.GetHorse(ctx, om.Horse.HorseID)
	if err != nil {
		return nil, err
	}

	prev := h.Name
	h.Name = newName
	if !containsFold(h.Aliases, prev) && !strings.EqualFold(prev, newName) {
		h.Aliases = append(h.Aliases, prev)
	}
	if err := s.store.UpdateHorse(ctx, h); err != nil {
		return nil, err
	}

	s.log.Info("renamed horse", zap.String("from", prev), zap.String("to", newName))
	return h, nil
}

// Unmerge removes an alias from a horse's set and re-registers it as an
// independent entry with blank owner/country.
func (s *Service) Unmerge(ctx context.Context, primary, alias string) (*models.Horse, error) {
	resolver, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	pm, ok := resolver.Resolve(primary)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, primary)
	}

	p, err := s.store.GetHorse(ctx, pm.Horse.HorseID)
	if err != nil {
		return nil, err
	}

	kept := p.Aliases[:0]
	found := false
	for _, a := range p.Aliases {
		if strings.EqualFold(a, alias) {
			found = true
			continue
		}
		kept = append(kept, a)
	}
	if !found {
		return nil, fmt.Errorf("%w: alias %q on %q", ErrNotFound, alias, p.Name)
	}
	p.Aliases = kept

	if err := s.store.UpdateHorse(ctx, p); err != nil {
		return nil, err
	}

	split := &models.Horse{Name: strings.TrimSpace(alias), Aliases: []string{}}
	if err := s.store.InsertHorse(ctx, split); err != nil {
		return nil, err
	}

	s.log.Info("unmerged alias", zap.String("primary", p.Name), zap.String("alias", split.Name))
	return split, nil
}

// mergeHistory combines two entry sets, deduplicating by (date, track)
// and keeping date-descending order.
func mergeHistory(a, b []models.HistoryEntry) []models.HistoryEntry {
	seen := map[string]bool{}
	key := func(e models.HistoryEntry) string { return e.Date + "|" + e.Track }

	out := make([]models.HistoryEntry, 0, len(a)+len(b))
	for _, e := range a {
		if !seen[key(e)] {
			seen[key(e)] = true
			out = append(out, e)
		}
	}
	for _, e := range b {
		if !seen[key(e)] {
			seen[key(e)] = true
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// CheckPartition scans a registry snapshot for alias-partition
// violations: spellings present in more than one entry. Mutation keeps
// the partition intact, so a non-empty result means something wrote to
// storage directly.
func CheckPartition(horses []models.Horse) []string {
	owner := map[string]string{}
	var violations []string
	claim := func(spelling, canonical string) {
		k := strings.ToLower(strings.TrimSpace(spelling))
		if k == "" {
			return
		}
		if prev, ok := owner[k]; ok && prev != canonical {
			violations = append(violations, fmt.Sprintf("%q in both %q and %q", spelling, prev, canonical))
			return
		}
		owner[k] = canonical
	}

	for _, h := range horses {
		claim(h.Name, h.Name)
	}
	for _, h := range horses {
		for _, a := range h.Aliases {
			claim(a, h.Name)
		}
	}
	return violations
}
