package ingest

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/padraicbc/chartapi/chart"
	"github.com/padraicbc/chartapi/models"
	"github.com/padraicbc/chartapi/registry"
)

// ConfirmRecord is one operator-confirmed record. HorseID selects the
// identity when set; otherwise HorseName is resolved (and auto-registered
// if unknown). Override pushes past the duplicate guard.
type ConfirmRecord struct {
	HorseID   int     `json:"horseID,omitempty"`
	HorseName string  `json:"horseName,omitempty"`
	Date      string  `json:"date"`
	Track     string  `json:"track"`
	Surface   string  `json:"surface"`
	Furlongs  float64 `json:"furlongs"`
	Class     string  `json:"class"`
	FinalTime string  `json:"finalTime"`
	Positions []int   `json:"positions"`
	Comment   string  `json:"comment"`
	Override  bool    `json:"override,omitempty"`
}

// Record commit outcomes.
const (
	RecordSaved     = "saved"
	RecordDuplicate = "duplicate"
	RecordError     = "error"
)

// RecordStatus reports the outcome for one confirmed record, by its index
// in the submitted batch.
type RecordStatus struct {
	Index   int    `json:"index"`
	HorseID int    `json:"horseID,omitempty"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

// CommitResult summarises a confirmed-batch commit.
type CommitResult struct {
	Records    []RecordStatus `json:"records"`
	Saved      int            `json:"saved"`
	Duplicates int            `json:"duplicates"`
	Errors     int            `json:"errors"`
}

// Commit merges confirmed records into each affected horse's history,
// re-sorted date-descending and deduplicated by (horse, date, track), and
// recomputes summaries for the touched horses only. Failures stay
// per-record; the batch always completes.
func (o *Orchestrator) Commit(ctx context.Context, recs []ConfirmRecord) (*CommitResult, error) {
	res := &CommitResult{Records: make([]RecordStatus, len(recs))}

	// Group records per canonical identity so each horse's history is
	// rewritten once.
	type horseBatch struct {
		horse   *models.Horse
		indexes []int
	}
	batches := map[int]*horseBatch{}

	for i, rec := range recs {
		res.Records[i].Index = i

		horse, err := o.resolveCommitTarget(ctx, rec)
		if err != nil {
			res.Records[i].Status = RecordError
			res.Records[i].Error = err.Error()
			res.Errors++
			continue
		}
		res.Records[i].HorseID = horse.HorseID

		b, ok := batches[horse.HorseID]
		if !ok {
			b = &horseBatch{horse: horse}
			batches[horse.HorseID] = b
		}
		b.indexes = append(b.indexes, i)
	}

	for _, b := range batches {
		o.commitHorse(ctx, b.horse, b.indexes, recs, res)
	}

	o.log.Info("batch committed",
		zap.Int("records", len(recs)),
		zap.Int("saved", res.Saved),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("errors", res.Errors))
	return res, nil
}

func (o *Orchestrator) resolveCommitTarget(ctx context.Context, rec ConfirmRecord) (*models.Horse, error) {
	if rec.HorseID > 0 {
		return o.reg.Store().GetHorse(ctx, rec.HorseID)
	}
	return o.reg.EnsureHorse(ctx, rec.HorseName)
}

// commitHorse applies all of one horse's confirmed records and recomputes
// its summary. Statuses are written into res by record index.
func (o *Orchestrator) commitHorse(ctx context.Context, horse *models.Horse, indexes []int, recs []ConfirmRecord, res *CommitResult) {
	fail := func(err error) {
		for _, i := range indexes {
			if res.Records[i].Status == "" {
				res.Records[i].Status = RecordError
				res.Records[i].Error = err.Error()
				res.Errors++
			}
		}
	}

	entries, err := o.reg.Store().History(ctx, horse.HorseID)
	if err != nil {
		fail(err)
		return
	}

	existing := map[string]bool{}
	for _, e := range entries {
		existing[e.Date+"|"+e.Track] = true
	}

	var saved []int
	for _, i := range indexes {
		rec := recs[i]
		key := rec.Date + "|" + rec.Track
		if existing[key] && !rec.Override {
			res.Records[i].Status = RecordDuplicate
			res.Records[i].Error = registry.ErrDuplicateEntry.Error()
			res.Duplicates++
			continue
		}
		if existing[key] {
			// Override replaces the entry rather than adding a second one:
			// the (horse, date, track) invariant always holds.
			kept := entries[:0]
			for _, e := range entries {
				if e.Date+"|"+e.Track != key {
					kept = append(kept, e)
				}
			}
			entries = kept
		}
		existing[key] = true
		entries = append(entries, newHistoryEntry(horse.HorseID, rec))
		saved = append(saved, i)
	}
	if len(saved) == 0 {
		return
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date > entries[j].Date })
	if err := o.reg.Store().ReplaceHistory(ctx, horse.HorseID, entries); err != nil {
		fail(err)
		return
	}
	for _, i := range saved {
		res.Records[i].Status = RecordSaved
		res.Saved++
	}

	if err := o.updateSummary(ctx, horse, entries); err != nil {
		o.log.Warn("summary update failed",
			zap.Int("horseID", horse.HorseID), zap.Error(err))
	}
}

// updateSummary recomputes the touched horse's summary fields, retrying
// once when a concurrent writer bumped the version first.
func (o *Orchestrator) updateSummary(ctx context.Context, horse *models.Horse, entries []models.HistoryEntry) error {
	for attempt := 0; ; attempt++ {
		applySummary(horse, entries)
		err := o.reg.Store().UpdateHorse(ctx, horse)
		if err == nil {
			return nil
		}
		if !errors.Is(err, registry.ErrVersionConflict) || attempt > 0 {
			return err
		}
		fresh, gerr := o.reg.Store().GetHorse(ctx, horse.HorseID)
		if gerr != nil {
			return gerr
		}
		*horse = *fresh
	}
}

func applySummary(horse *models.Horse, entries []models.HistoryEntry) {
	horse.Starts = 0
	horse.LastRaceDate = nil
	horse.BestPaceFive = nil
	for _, e := range entries {
		if e.Kind != models.EntryRace {
			continue
		}
		horse.Starts++
		if horse.LastRaceDate == nil || e.Date > *horse.LastRaceDate {
			d := e.Date
			horse.LastRaceDate = &d
		}
		if e.PaceFive > 0 && (horse.BestPaceFive == nil || e.PaceFive < *horse.BestPaceFive) {
			p := e.PaceFive
			horse.BestPaceFive = &p
		}
	}
}

// newHistoryEntry builds the normalized entry: seconds, speed and pace
// are derived from the display time, never taken from the client.
func newHistoryEntry(horseID int, rec ConfirmRecord) models.HistoryEntry {
	finalSecs := chart.ParseSeconds(rec.FinalTime)
	positions := make([]int64, len(rec.Positions))
	for i, p := range rec.Positions {
		positions[i] = int64(p)
	}
	return models.HistoryEntry{
		HorseID:      horseID,
		Kind:         models.EntryRace,
		Date:         rec.Date,
		Track:        rec.Track,
		Surface:      rec.Surface,
		Distance:     rec.Furlongs,
		Class:        rec.Class,
		FinalTime:    rec.FinalTime,
		FinalSeconds: finalSecs,
		AvgSpeed:     chart.AvgSpeedMPH(rec.Furlongs, finalSecs),
		PaceFive:     chart.FiveFurlongPace(rec.Furlongs, finalSecs),
		Positions:    positions,
		Comment:      rec.Comment,
	}
}
