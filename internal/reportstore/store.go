// =============================================================================
// Report Consolidator - Consolidated Report Store
// =============================================================================
//
// The store accumulates report tables produced by independent analysis flows
// and hands them to the consolidated export in one ordered list.
//
// LAYOUT:
//   A single JSON blob under Options.Key:
//     {"budget_results": [{"df": [...], "title": "...", "percent_cols": []}]}
//
// RULES:
//   - A report is kept only when it has a title and at least one row.
//   - Storing a category replaces everything it held before.
//   - A batch with no valid report leaves the category untouched.
//   - Corrupt data reads as an empty store and is replaced by the next write.
//   - A failed storage read reads as empty but aborts any write, so other
//     categories are never overwritten with a partial view.
//   - Persistence failures are logged; no method returns an error.
//
// CONCURRENCY:
//   Methods are safe for concurrent use. Each call reads the blob, applies
//   its change and writes the whole blob back under one lock, so readers
//   never see a partially written category. Subscribers are notified after
//   the lock is released.
//
// =============================================================================

package reportstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ginjaninja78/report-consolidator/internal/logging"
	"github.com/ginjaninja78/report-consolidator/internal/storage"
	"github.com/ginjaninja78/report-consolidator/internal/types"
)

// DefaultKey is the storage key of the consolidated blob.
const DefaultKey = "consolidatedReports"

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Store.
type Options struct {
	// Key is the storage key holding the blob.
	Key string

	// Logger receives validation drops and persistence failures.
	Logger logging.Logger
}

// DefaultOptions returns the options used by New.
func DefaultOptions() Options {
	return Options{
		Key:    DefaultKey,
		Logger: logging.Nop(),
	}
}

// =============================================================================
// STORE
// =============================================================================

// Store is the consolidated report store. Create one per session and pass it
// to every flow that produces or exports reports.
type Store struct {
	storage storage.Storage
	key     string
	logger  logging.Logger
	events  *bus

	mu sync.Mutex
}

// New creates a Store on top of s with DefaultOptions.
func New(s storage.Storage) *Store {
	return NewWithOptions(s, DefaultOptions())
}

// NewWithOptions creates a Store on top of s.
//
// PARAMETERS:
//   - s: The blob storage backend.
//   - opts: Storage key and logger. Empty values fall back to defaults.
//
// RETURNS:
//   - A new Store.
func NewWithOptions(s storage.Storage, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Store{
		storage: s,
		key:     opts.Key,
		logger:  opts.Logger,
		events:  newBus(),
	}
}

// Subscribe registers h for store events and returns a function that
// removes the subscription.
func (s *Store) Subscribe(h Handler) (unsubscribe func()) {
	return s.events.subscribe(h)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AddReports replaces the contents of category with the valid entries of
// reports and returns how many were stored.
//
// Invalid entries (empty title or no rows) are dropped and logged. When no
// entry survives, nothing is written and the category keeps its previous
// contents.
func (s *Store) AddReports(category string, reports []types.Report) int {
	valid := make([]types.Report, 0, len(reports))
	for i, r := range reports {
		if !IsValid(r) {
			s.logger.Warn("dropping invalid report %d for %s (title=%q, rows=%d)", i, category, r.Title, len(r.DF))
			continue
		}
		valid = append(valid, r)
	}

	if len(valid) == 0 {
		s.logger.Warn("no valid reports for %s, keeping existing contents", category)
		return 0
	}

	s.mu.Lock()
	data, err := s.load()
	if err == nil {
		data.Set(category, valid)
		err = s.save(data)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to store reports for %s: %v", category, err)
		return 0
	}

	s.logger.Info("stored %d report(s) in %s", len(valid), category)
	s.events.publish(Event{Type: EventReportsUpdated, Category: category, Count: len(valid)})
	return len(valid)
}

// ClearAll removes every category.
func (s *Store) ClearAll() {
	s.mu.Lock()
	err := s.storage.Remove(s.key)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to clear consolidated reports: %v", err)
		return
	}

	s.logger.Info("cleared all consolidated reports")
	s.events.publish(Event{Type: EventReportsCleared})
}

// ClearCategory removes one category. Other categories are untouched.
func (s *Store) ClearCategory(category string) {
	s.mu.Lock()
	data, err := s.load()
	if err == nil && data.Delete(category) {
		err = s.save(data)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("failed to clear %s: %v", category, err)
		return
	}

	s.logger.Info("cleared reports for %s", category)
	s.events.publish(Event{Type: EventCategoryCleared, Category: category, Count: 0})
}

// =============================================================================
// QUERIES
// =============================================================================

// Reports returns the full store. It is empty when nothing was stored or the
// stored data cannot be read.
func (s *Store) Reports() *Consolidated {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := s.load()
	return data
}

// Counts returns the number of reports per category.
func (s *Store) Counts() map[string]int {
	return s.Summary().Counts
}

// TotalCount returns the number of reports across all categories.
func (s *Store) TotalCount() int {
	return s.Summary().Total
}

// Flatten returns every report tagged with its category, in category order
// and then in stored order.
func (s *Store) Flatten() []types.FlatReport {
	return Flatten(s.Reports())
}

// EstimateSlides returns the slide count of the consolidated deck.
func (s *Store) EstimateSlides() int {
	return s.Summary().EstimatedSlides
}

// Buckets returns the per-bucket breakdown of the current counts.
func (s *Store) Buckets() BucketCounts {
	return s.Summary().Buckets
}

// Summary is a point-in-time overview of the store.
type Summary struct {
	Categories      []string       `json:"categories"`
	Counts          map[string]int `json:"counts"`
	Total           int            `json:"total"`
	Buckets         BucketCounts   `json:"buckets"`
	EstimatedSlides int            `json:"estimated_slides"`
}

// Summary computes counts, buckets and the slide estimate from a single read
// of the store.
func (s *Store) Summary() Summary {
	data := s.Reports()

	sum := Summary{
		Categories: data.Categories(),
		Counts:     make(map[string]int, data.Len()),
	}
	for _, e := range data.entries {
		sum.Counts[e.Name] = len(e.Reports)
		sum.Total += len(e.Reports)
	}
	sum.Buckets = Bucketize(sum.Counts)
	sum.EstimatedSlides = EstimateSlides(Flatten(data))
	return sum
}

// Flatten tags every report of data with its category.
func Flatten(data *Consolidated) []types.FlatReport {
	var flat []types.FlatReport
	for _, e := range data.entries {
		for _, r := range e.Reports {
			flat = append(flat, types.FlatReport{Report: r, Category: e.Name})
		}
	}
	return flat
}

// IsValid reports whether r can be stored.
func IsValid(r types.Report) bool {
	return r.Title != "" && len(r.DF) > 0
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// load reads the blob. Callers hold s.mu.
//
// A missing or corrupt blob yields an empty store and no error. A storage
// failure yields an empty store and the error, which writers must honour.
func (s *Store) load() (*Consolidated, error) {
	data := &Consolidated{}

	raw, err := s.storage.Get(s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return data, nil
	}
	if err != nil {
		s.logger.Error("failed to read consolidated reports: %v", err)
		return data, fmt.Errorf("failed to read consolidated reports: %w", err)
	}

	if err := json.Unmarshal(raw, data); err != nil {
		s.logger.Warn("consolidated reports are corrupt, treating as empty: %v", err)
		return &Consolidated{}, nil
	}
	return data, nil
}

// save writes the blob. Callers hold s.mu.
func (s *Store) save(data *Consolidated) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.storage.Set(s.key, raw)
}
