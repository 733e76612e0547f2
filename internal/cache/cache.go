package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quietwire/linkcheck/internal/model"
)

// DefaultMaxAge is how long a recorded outcome stays valid.
const DefaultMaxAge = 24 * time.Hour

// Record is one persisted outcome. The JSON shape matches the cache files
// written by earlier versions of the checker, so existing caches stay usable.
type Record struct {
	OK       bool    `json:"ok"`
	Code     *int    `json:"code"`
	FinalURL *string `json:"final"`
	Reason   string  `json:"reason"`

	// ObservedAt is fractional seconds since the Unix epoch.
	ObservedAt float64 `json:"_ts"`
}

// Outcome converts the record back to a check outcome.
func (r Record) Outcome() model.Outcome {
	o := model.Outcome{OK: r.OK, Reason: r.Reason}
	if r.Code != nil {
		o.Code = *r.Code
	}
	if r.FinalURL != nil {
		o.FinalURL = *r.FinalURL
	}
	return o
}

func newRecord(o model.Outcome, at time.Time) Record {
	r := Record{OK: o.OK, Reason: o.Reason, ObservedAt: float64(at.UnixNano()) / 1e9}
	if o.Code != 0 {
		code := o.Code
		r.Code = &code
	}
	if o.FinalURL != "" {
		final := o.FinalURL
		r.FinalURL = &final
	}
	return r
}

// Store maps normalized URLs to their last observed outcome.
// It is safe for concurrent use. Expiry is lazy: a stale record is ignored
// by Get and replaced by the next Put, never evicted in the background.
type Store struct {
	mu      sync.Mutex
	records map[string]Record

	path   string
	maxAge time.Duration
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPath sets the file used by Load and Save. An empty path disables
// persistence.
func WithPath(path string) Option {
	return func(s *Store) {
		s.path = path
	}
}

// WithMaxAge sets how long records stay valid.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		s.maxAge = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		records: make(map[string]Record),
		maxAge:  DefaultMaxAge,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the outcome recorded for url if it is younger than the
// configured max age.
func (s *Store) Get(url string) (model.Outcome, bool) {
	s.mu.Lock()
	rec, ok := s.records[url]
	s.mu.Unlock()
	if !ok {
		return model.Outcome{}, false
	}

	observed := time.Unix(0, int64(rec.ObservedAt*1e9))
	if s.now().Sub(observed) > s.maxAge {
		return model.Outcome{}, false
	}
	return rec.Outcome(), true
}

// Put records outcome for url with the current time, replacing any
// previous record.
func (s *Store) Put(url string, outcome model.Outcome) {
	rec := newRecord(outcome, s.now())
	s.mu.Lock()
	s.records[url] = rec
	s.mu.Unlock()
}

// Len returns the number of records, fresh or stale.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Path returns the persistence path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the contents of the store with the file at the configured
// path. A missing file leaves the store empty and is not an error. A file
// that cannot be parsed also leaves the store empty; the parse error is
// returned so the caller can log it.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read cache: %w", err)
	}

	records := make(map[string]Record)
	if err := json.Unmarshal(data, &records); err != nil {
		records = make(map[string]Record)
		s.replace(records)
		return fmt.Errorf("failed to parse cache %s: %w", s.path, err)
	}
	if records == nil {
		// A file holding "null" decodes to a nil map.
		records = make(map[string]Record)
	}

	for url, rec := range records {
		if math.IsNaN(rec.ObservedAt) || math.IsInf(rec.ObservedAt, 0) {
			delete(records, url)
		}
	}
	s.replace(records)
	return nil
}

func (s *Store) replace(records map[string]Record) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

// Save writes the store to the configured path through a temporary file
// and rename, so a crash never leaves a truncated cache behind.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".linkcheck-cache-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache: %w", err)
	}
	return nil
}
