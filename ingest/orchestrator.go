// Package ingest turns uploaded chart documents into a confidence-scored
// review queue and commits operator-confirmed records into horse
// histories. Nothing is written until confirmation; a document parse is a
// pure function of the text and a read-only registry snapshot.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/padraicbc/chartapi/chart"
	"github.com/padraicbc/chartapi/registry"
)

// parseWorkers bounds parallel document parsing within a batch.
const parseWorkers = 8

// keepBatches bounds the recent-batch cache backing review re-fetches.
const keepBatches = 32

// Document is one uploaded chart: extracted text plus its source file
// name. Text extraction happens upstream.
type Document struct {
	FileName string `json:"fileName"`
	Text     string `json:"text"`
}

// Candidate is one horse's parsed result row. Every name in the results
// section gets a Candidate so the reviewer can switch horses without a
// re-parse.
type Candidate struct {
	Name          string    `json:"name"`
	Row           chart.Row `json:"row"`
	Positions     []int     `json:"positions"`
	ExpectedCalls int       `json:"expectedCalls"`
	AvgSpeed      float64   `json:"avgSpeed"`
	PaceFive      float64   `json:"paceFive"`
	ParseErr      string    `json:"parseErr,omitempty"`
}

// Problem tags from the error taxonomy attached to review items.
const (
	ProblemMetadataIncomplete = "metadata_incomplete"
	ProblemHorseNotFound      = "horse_not_found"
	ProblemAmbiguousIdentity  = "ambiguous_identity"
	ProblemDuplicateEntry     = "duplicate_entry"
	ProblemParseFailure       = "parse_failure"
	ProblemShortPositions     = "positions_under_resolved"
)

// Status buckets for the aggregate counts.
type Status string

const (
	StatusReady             Status = "ready"
	StatusNeedsVerification Status = "needs_verification"
	StatusDuplicate         Status = "duplicate"
	StatusError             Status = "error"
)

// ReviewItem is one document's parse result as presented to the review
// surface.
type ReviewItem struct {
	ID       string             `json:"id"`
	FileName string             `json:"fileName"`
	Metadata chart.RaceMetadata `json:"metadata"`

	Candidates []Candidate `json:"candidates"`
	// Best is the index into Candidates picked as the likely target, -1
	// when there are none.
	Best int `json:"best"`

	Match     registry.Match `json:"match"`
	Duplicate bool           `json:"duplicate"`

	Status   Status   `json:"status"`
	Problems []string `json:"problems,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Counts aggregates review-item statuses for a batch.
type Counts struct {
	Ready             int `json:"ready"`
	NeedsVerification int `json:"needsVerification"`
	Duplicate         int `json:"duplicate"`
	Errors            int `json:"errors"`
}

// BatchResult is the ordered review queue for one upload batch. Items
// appear in original submission order regardless of parse scheduling.
type BatchResult struct {
	BatchID string       `json:"batchID"`
	Items   []ReviewItem `json:"items"`
	Counts  Counts       `json:"counts"`
}

// Orchestrator drives parsing and commits against the registry. Parsed
// batches are cached so the review surface can re-fetch a queue by id.
type Orchestrator struct {
	reg         *registry.Service
	log         *zap.Logger
	maxBatch    int
	autoAccept  float64
	reviewScore float64

	mu     sync.Mutex
	recent map[string]*BatchResult
	order  []string
}

// NewOrchestrator wires an Orchestrator. Thresholds follow the registry
// defaults when zero.
func NewOrchestrator(reg *registry.Service, log *zap.Logger, maxBatch int, autoAccept, reviewScore float64) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	if maxBatch < 1 {
		maxBatch = 50
	}
	if autoAccept == 0 {
		autoAccept = registry.AutoAcceptScore
	}
	if reviewScore == 0 {
		reviewScore = registry.ReviewScore
	}
	return &Orchestrator{
		reg:         reg,
		log:         log,
		maxBatch:    maxBatch,
		autoAccept:  autoAccept,
		reviewScore: reviewScore,
		recent:      map[string]*BatchResult{},
	}
}

// ParseBatch parses every document against one registry snapshot, in
// parallel, and returns review items in submission order. No document
// failure is fatal to the batch.
func (o *Orchestrator) ParseBatch(ctx context.Context, docs []Document) (*BatchResult, error) {
	if len(docs) == 0 {
		res := &BatchResult{BatchID: uuid.NewString()}
		o.remember(res)
		return res, nil
	}
	if len(docs) > o.maxBatch {
		return nil, fmt.Errorf("ingest: batch of %d exceeds limit %d", len(docs), o.maxBatch)
	}

	resolver, err := o.reg.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	resolver.SetThresholds(o.autoAccept, o.reviewScore)

	guard, err := NewGuard(ctx, o.reg.Store())
	if err != nil {
		return nil, err
	}

	items := make([]ReviewItem, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = o.parseDocument(doc, resolver, guard)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &BatchResult{BatchID: uuid.NewString(), Items: items}
	for _, it := range items {
		switch it.Status {
		case StatusReady:
			res.Counts.Ready++
		case StatusNeedsVerification:
			res.Counts.NeedsVerification++
		case StatusDuplicate:
			res.Counts.Duplicate++
		default:
			res.Counts.Errors++
		}
	}

	o.log.Info("batch parsed",
		zap.String("batchID", res.BatchID),
		zap.Int("documents", len(docs)),
		zap.Int("ready", res.Counts.Ready),
		zap.Int("needsVerification", res.Counts.NeedsVerification),
		zap.Int("duplicate", res.Counts.Duplicate),
		zap.Int("errors", res.Counts.Errors))
	o.remember(res)
	return res, nil
}

func (o *Orchestrator) remember(res *BatchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recent[res.BatchID] = res
	o.order = append(o.order, res.BatchID)
	for len(o.order) > keepBatches {
		delete(o.recent, o.order[0])
		o.order = o.order[1:]
	}
}

// Batch re-fetches a previously parsed review queue. The second return is
// false when the id is unknown or the batch has aged out of the cache.
func (o *Orchestrator) Batch(id string) (*BatchResult, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	res, ok := o.recent[id]
	return res, ok
}

// parseDocument is pure: text in, review item out. It always yields
// either a full (possibly low-confidence) item or an explicit error item.
func (o *Orchestrator) parseDocument(doc Document, resolver *registry.Resolver, guard *Guard) ReviewItem {
	item := ReviewItem{
		ID:       uuid.NewString(),
		FileName: doc.FileName,
		Metadata: chart.ExtractMetadata(doc.Text),
		Best:     -1,
	}

	names := chart.EnumerateCandidates(doc.Text)
	if len(names) == 0 {
		item.Status = StatusError
		item.Problems = append(item.Problems, ProblemParseFailure)
		item.Error = "no result rows recognised; manual entry required"
		return item
	}

	expected := chart.ExpectedCalls(item.Metadata.Furlongs)
	for _, name := range names {
		item.Candidates = append(item.Candidates, parseCandidate(doc.Text, name, item.Metadata.Furlongs, expected))
	}

	item.Best = bestCandidate(doc.FileName, names)
	target := item.Candidates[item.Best]
	if target.ParseErr != "" {
		item.Problems = append(item.Problems, ProblemHorseNotFound)
	}

	item.Match = resolver.ResolveNoisy(target.Name)
	if !resolver.AutoAccepted(item.Match) {
		item.Problems = append(item.Problems, ProblemAmbiguousIdentity)
	}

	if item.Match.Horse != nil &&
		guard.IsDuplicate(item.Match.Horse.HorseID, item.Metadata.Date, item.Metadata.Track) {
		item.Duplicate = true
		item.Problems = append(item.Problems, ProblemDuplicateEntry)
	}

	if item.Metadata.Incomplete() {
		item.Problems = append(item.Problems, ProblemMetadataIncomplete)
	}
	if len(target.Positions) < expected {
		item.Problems = append(item.Problems, ProblemShortPositions)
	}

	switch {
	case item.Duplicate:
		item.Status = StatusDuplicate
	case len(item.Problems) > 0:
		item.Status = StatusNeedsVerification
	default:
		item.Status = StatusReady
	}
	return item
}

// parseCandidate extracts one horse's fields; a missing row yields an
// explicit per-candidate error, never a partial record.
func parseCandidate(text, name string, furlongs float64, expected int) Candidate {
	c := Candidate{Name: name, ExpectedCalls: expected}

	row, ok := chart.LocateRow(text, name)
	if !ok {
		c.ParseErr = "horse not found in results section"
		return c
	}
	c.Row = row

	switch {
	case row.PositionDigits != "":
		c.Positions = chart.Disambiguate(row.PositionDigits, expected)
	case len(row.PositionTokens) > 0:
		c.Positions = chart.PositionsFromTokens(row.PositionTokens)
	}

	final := row.Times.Final.Seconds()
	c.AvgSpeed = chart.AvgSpeedMPH(furlongs, final)
	c.PaceFive = chart.FiveFurlongPace(furlongs, final)
	return c
}

// bestCandidate picks the candidate most similar to the source file name;
// with no usable signal the first row wins.
func bestCandidate(fileName string, names []string) int {
	stem := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	stem = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return ' '
	}, stem)
	stem = strings.Join(strings.Fields(strings.ToLower(stem)), "")
	if stem == "" {
		return 0
	}

	best, bestScore := 0, 0.0
	for i, n := range names {
		key := strings.Join(strings.Fields(strings.ToLower(n)), "")
		if s := registry.Similarity(stem, key); s > bestScore {
			best, bestScore = i, s
		}
	}
	if bestScore < 0.5 {
		return 0
	}
	return best
}
