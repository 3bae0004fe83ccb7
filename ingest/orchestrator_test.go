package ingest

import (
	"context"
	"reflect"
	"testing"

	"github.com/padraicbc/chartapi/models"
	"github.com/padraicbc/chartapi/registry"
)

const chartFixture = `Churchill Downs - Saturday, May 6, 2023 - Race 7
Six Furlongs. Dirt. Allowance. Purse $120,000
Pgm Horse Name Odds Comment
3 Ginger Punch 2.50 bid three wide, drew clear 24.10 48.22 1:10.45 3211
5 Rapid Transit 5.80 chased inside, weakened 24.30 48.90 1:11.02 1234
`

func newTestOrchestrator(t *testing.T) (*Orchestrator, *registry.MemStore) {
	t.Helper()
	store := registry.NewMemStore()
	svc := registry.NewService(store, nil)
	return NewOrchestrator(svc, nil, 0, 0, 0), store
}

func seedHorse(t *testing.T, store *registry.MemStore, name string) *models.Horse {
	t.Helper()
	h := &models.Horse{Name: name, Aliases: []string{}}
	if err := store.InsertHorse(context.Background(), h); err != nil {
		t.Fatalf("seed %s: %v", name, err)
	}
	return h
}

func TestParseBatchReady(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, store := newTestOrchestrator(t)
	seedHorse(t, store, "Ginger Punch")
	seedHorse(t, store, "Rapid Transit")

	res, err := orch.ParseBatch(ctx, []Document{
		{FileName: "ginger_punch.pdf", Text: chartFixture},
	})
	if err != nil {
		t.Fatalf("parse batch: %v", err)
	}
	if res.BatchID == "" || len(res.Items) != 1 {
		t.Fatalf("batch = %+v", res)
	}

	item := res.Items[0]
	if item.Status != StatusReady {
		t.Fatalf("status = %s (problems %v), want ready", item.Status, item.Problems)
	}
	if res.Counts.Ready != 1 {
		t.Fatalf("counts = %+v", res.Counts)
	}

	// Every horse in the results section is parsed so the reviewer can
	// switch targets without a re-parse.
	if len(item.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(item.Candidates))
	}
	if item.Best != 0 || item.Candidates[0].Name != "Ginger Punch" {
		t.Fatalf("best = %d (%q), want the file-name match", item.Best, item.Candidates[item.Best].Name)
	}
	if !reflect.DeepEqual(item.Candidates[0].Positions, []int{3, 2, 1, 1}) {
		t.Fatalf("positions = %v", item.Candidates[0].Positions)
	}
	if item.Match.Method != registry.MatchExact || item.Match.Horse == nil {
		t.Fatalf("match = %+v, want exact", item.Match)
	}
	if item.Metadata.Track != "CD" || item.Metadata.Date != "2023-05-06" {
		t.Fatalf("metadata = %+v", item.Metadata)
	}
}

func TestParseBatchFileNamePicksBest(t *testing.T) {
	t.Parallel()
	orch, store := newTestOrchestrator(t)
	seedHorse(t, store, "Rapid Transit")

	res, err := orch.ParseBatch(context.Background(), []Document{
		{FileName: "rapid_transit.pdf", Text: chartFixture},
	})
	if err != nil {
		t.Fatal(err)
	}
	item := res.Items[0]
	if item.Best != 1 || item.Candidates[item.Best].Name != "Rapid Transit" {
		t.Fatalf("best = %d (%q), want Rapid Transit", item.Best, item.Candidates[item.Best].Name)
	}
}

func TestParseBatchUnknownHorseNeedsVerification(t *testing.T) {
	t.Parallel()
	orch, _ := newTestOrchestrator(t)

	res, err := orch.ParseBatch(context.Background(), []Document{
		{FileName: "ginger_punch.pdf", Text: chartFixture},
	})
	if err != nil {
		t.Fatal(err)
	}
	item := res.Items[0]
	if item.Status != StatusNeedsVerification {
		t.Fatalf("status = %s, want needs_verification against an empty registry", item.Status)
	}
	if !hasProblem(item, ProblemAmbiguousIdentity) {
		t.Fatalf("problems = %v, want ambiguous identity", item.Problems)
	}
}

func TestParseBatchFlagsDuplicate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, store := newTestOrchestrator(t)
	h := seedHorse(t, store, "Ginger Punch")
	store.ReplaceHistory(ctx, h.HorseID, []models.HistoryEntry{
		{HorseID: h.HorseID, Kind: models.EntryRace, Date: "2023-05-06", Track: "CD"},
	})

	res, err := orch.ParseBatch(ctx, []Document{
		{FileName: "ginger_punch.pdf", Text: chartFixture},
	})
	if err != nil {
		t.Fatal(err)
	}
	item := res.Items[0]
	if item.Status != StatusDuplicate || !item.Duplicate {
		t.Fatalf("status = %s, want duplicate", item.Status)
	}
	if !hasProblem(item, ProblemDuplicateEntry) {
		t.Fatalf("problems = %v", item.Problems)
	}
	if res.Counts.Duplicate != 1 {
		t.Fatalf("counts = %+v", res.Counts)
	}
}

func TestParseBatchIsolatesFailures(t *testing.T) {
	t.Parallel()
	orch, store := newTestOrchestrator(t)
	seedHorse(t, store, "Ginger Punch")

	res, err := orch.ParseBatch(context.Background(), []Document{
		{FileName: "scan_noise.pdf", Text: "no recognisable chart content"},
		{FileName: "ginger_punch.pdf", Text: chartFixture},
	})
	if err != nil {
		t.Fatalf("one bad document must not fail the batch: %v", err)
	}

	// Items come back in submission order regardless of parse scheduling.
	if res.Items[0].FileName != "scan_noise.pdf" || res.Items[1].FileName != "ginger_punch.pdf" {
		t.Fatalf("items out of order: %q, %q", res.Items[0].FileName, res.Items[1].FileName)
	}
	if res.Items[0].Status != StatusError || !hasProblem(res.Items[0], ProblemParseFailure) {
		t.Fatalf("bad document = %+v", res.Items[0])
	}
	if res.Items[1].Status != StatusReady {
		t.Fatalf("good document = %s (problems %v)", res.Items[1].Status, res.Items[1].Problems)
	}
	if res.Counts.Errors != 1 || res.Counts.Ready != 1 {
		t.Fatalf("counts = %+v", res.Counts)
	}
}

func TestParseBatchSizeLimit(t *testing.T) {
	t.Parallel()
	store := registry.NewMemStore()
	svc := registry.NewService(store, nil)
	orch := NewOrchestrator(svc, nil, 2, 0, 0)

	docs := []Document{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	if _, err := orch.ParseBatch(context.Background(), docs); err == nil {
		t.Fatal("oversized batch accepted")
	}
}

func TestBatchCache(t *testing.T) {
	t.Parallel()
	orch, store := newTestOrchestrator(t)
	seedHorse(t, store, "Ginger Punch")

	res, err := orch.ParseBatch(context.Background(), []Document{
		{FileName: "ginger_punch.pdf", Text: chartFixture},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, ok := orch.Batch(res.BatchID)
	if !ok || got.BatchID != res.BatchID || len(got.Items) != 1 {
		t.Fatalf("cached batch = %+v, %v", got, ok)
	}
	if _, ok := orch.Batch("no-such-batch"); ok {
		t.Fatal("unknown batch id returned a result")
	}
}

func TestCommitAndSummary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, store := newTestOrchestrator(t)

	res, err := orch.Commit(ctx, []ConfirmRecord{
		{HorseName: "Ginger Punch", Date: "2023-05-06", Track: "CD", Surface: "D",
			Furlongs: 6, Class: "ALW", FinalTime: "1:10.45", Positions: []int{3, 2, 1, 1}},
		{HorseName: "Ginger Punch", Date: "2023-04-01", Track: "KEE", Surface: "D",
			Furlongs: 8.5, Class: "ALW", FinalTime: "1:42.33", Positions: []int{5, 4, 3, 2, 1}},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.Saved != 2 || res.Errors != 0 {
		t.Fatalf("result = %+v", res)
	}

	id := res.Records[0].HorseID
	if id == 0 || res.Records[1].HorseID != id {
		t.Fatalf("records not grouped onto one auto-registered horse: %+v", res.Records)
	}

	hist, _ := store.History(ctx, id)
	if len(hist) != 2 || hist[0].Date != "2023-05-06" || hist[1].Date != "2023-04-01" {
		t.Fatalf("history = %+v, want two entries date-descending", hist)
	}
	if hist[0].FinalSeconds < 70.449 || hist[0].FinalSeconds > 70.451 {
		t.Fatalf("final seconds = %v, want derived 70.45", hist[0].FinalSeconds)
	}

	h, err := store.GetHorse(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if h.Starts != 2 {
		t.Fatalf("starts = %d, want 2", h.Starts)
	}
	if h.LastRaceDate == nil || *h.LastRaceDate != "2023-05-06" {
		t.Fatalf("last race date = %v", h.LastRaceDate)
	}
	wantPace := 70.45 / 6 * 5 // the six-furlong race is the faster pace
	if h.BestPaceFive == nil || *h.BestPaceFive < wantPace-0.001 || *h.BestPaceFive > wantPace+0.001 {
		t.Fatalf("best pace = %v, want %v", h.BestPaceFive, wantPace)
	}
}

func TestCommitDuplicateAndOverride(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, store := newTestOrchestrator(t)

	rec := ConfirmRecord{HorseName: "Ginger Punch", Date: "2023-05-06", Track: "CD",
		Furlongs: 6, FinalTime: "1:10.45", Positions: []int{3, 2, 1, 1}}

	if _, err := orch.Commit(ctx, []ConfirmRecord{rec}); err != nil {
		t.Fatal(err)
	}

	// Same (horse, date, track) again: refused, history unchanged.
	res, err := orch.Commit(ctx, []ConfirmRecord{rec})
	if err != nil {
		t.Fatal(err)
	}
	if res.Duplicates != 1 || res.Records[0].Status != RecordDuplicate {
		t.Fatalf("result = %+v, want duplicate", res)
	}

	id := res.Records[0].HorseID
	hist, _ := store.History(ctx, id)
	if len(hist) != 1 {
		t.Fatalf("history = %d entries after duplicate commit, want 1", len(hist))
	}

	// Override replaces the entry instead of adding a second one.
	rec.Override = true
	rec.FinalTime = "1:10.00"
	res, err = orch.Commit(ctx, []ConfirmRecord{rec})
	if err != nil {
		t.Fatal(err)
	}
	if res.Saved != 1 {
		t.Fatalf("override result = %+v", res)
	}
	hist, _ = store.History(ctx, id)
	if len(hist) != 1 || hist[0].FinalTime != "1:10.00" {
		t.Fatalf("history after override = %+v", hist)
	}
}

func TestCommitRecordErrorsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	orch, _ := newTestOrchestrator(t)

	res, err := orch.Commit(ctx, []ConfirmRecord{
		{HorseName: "", Date: "2023-05-06", Track: "CD"},
		{HorseName: "Ginger Punch", Date: "2023-05-06", Track: "CD", Furlongs: 6, FinalTime: "1:10.45"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors != 1 || res.Records[0].Status != RecordError {
		t.Fatalf("blank record = %+v", res.Records[0])
	}
	if res.Saved != 1 || res.Records[1].Status != RecordSaved {
		t.Fatalf("good record = %+v", res.Records[1])
	}
}

func TestGuard(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := registry.NewMemStore()
	h := &models.Horse{Name: "Ginger Punch", Aliases: []string{}}
	if err := store.InsertHorse(ctx, h); err != nil {
		t.Fatal(err)
	}
	store.ReplaceHistory(ctx, h.HorseID, []models.HistoryEntry{
		{HorseID: h.HorseID, Kind: models.EntryRace, Date: "2023-05-06", Track: "CD"},
	})

	guard, err := NewGuard(ctx, store)
	if err != nil {
		t.Fatal(err)
	}
	if !guard.IsDuplicate(h.HorseID, "2023-05-06", "CD") {
		t.Fatal("existing entry not flagged")
	}
	if guard.IsDuplicate(h.HorseID, "2023-05-06", "BEL") {
		t.Fatal("different track flagged")
	}
	if guard.IsDuplicate(h.HorseID+1, "2023-05-06", "CD") {
		t.Fatal("different horse flagged")
	}
}

func hasProblem(item ReviewItem, problem string) bool {
	for _, p := range item.Problems {
		if p == problem {
			return true
		}
	}
	return false
}
