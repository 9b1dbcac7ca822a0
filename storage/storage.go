package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"themeplane/model"
)

// Store keeps the activation history as one JSON file per record.
type Store struct {
	baseDir string
	logger  *log.Logger
	mu      sync.Mutex
}

// New creates a new Store instance with the given base directory.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, logger: log.New(io.Discard)}
}

// SetLogger sets the logger used to report unreadable records.
func (s *Store) SetLogger(logger *log.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// EnsureDirs creates the history directory.
func (s *Store) EnsureDirs() error {
	return os.MkdirAll(filepath.Join(s.baseDir, "history"), 0o755)
}

// SaveActivation writes a record under history/YYYY/MM/DD. Missing ID and
// timestamp are filled in.
func (s *Store) SaveActivation(rec *model.Activation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec == nil {
		return fmt.Errorf("nil activation")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	t := rec.Timestamp.UTC()
	dir := filepath.Join(
		s.baseDir,
		"history",
		fmt.Sprintf("%04d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
	)

	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode activation: %w", err)
	}

	short := rec.ID
	if len(short) > 8 {
		short = short[:8]
	}
	filename := fmt.Sprintf("%s-%s.json", t.Format("2006-01-02T15-04-05.000Z"), short)
	return WriteFileAtomic(filepath.Join(dir, filename), append(b, '\n'), 0o644)
}

// ListActivations returns the records within [from, to], oldest first.
func (s *Store) ListActivations(from, to time.Time) ([]model.Activation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = from.UTC()
	to = to.UTC()

	base := filepath.Join(s.baseDir, "history")
	var records []model.Activation

	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".json" {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var rec model.Activation
		if err := json.Unmarshal(content, &rec); err != nil {
			s.logger.Warn("skipping unreadable activation record", "path", path, "err", err)
			return nil
		}
		if rec.Timestamp.IsZero() {
			return nil
		}

		t := rec.Timestamp.UTC()
		if t.Before(from) || t.After(to) {
			return nil
		}

		records = append(records, rec)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	return records, nil
}

// Recent returns at most limit records, newest first.
func (s *Store) Recent(limit int) ([]model.Activation, error) {
	records, err := s.ListActivations(time.Time{}, time.Now().Add(time.Minute))
	if err != nil {
		return nil, err
	}
	out := make([]model.Activation, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, records[i])
	}
	return out, nil
}

// Latest returns the most recent record, or nil when there is none.
func (s *Store) Latest() (*model.Activation, error) {
	records, err := s.Recent(1)
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return &records[0], nil
}
