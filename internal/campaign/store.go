package campaign

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/types"
)

// Columns of the output list, in file order.
var resultHeader = []string{"website_url", "restaurant_name", "contact_page_url", "status", "timestamp", "run_id"}

// legacyTimeLayout is how older output lists wrote timestamps.
const legacyTimeLayout = "2006-01-02 15:04:05"

// CSVStore keeps the output list in a CSV file, rewriting it after every Put.
// Records for URLs that are never Put again keep their position and content.
type CSVStore struct {
	path string
	log  *zap.Logger

	mu      sync.Mutex
	loaded  bool
	records []types.ResultRecord
	index   map[string]int
}

// NewCSVStore creates a store backed by path. The file is not read until Load or Put.
func NewCSVStore(path string, logger *zap.Logger) *CSVStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVStore{path: path, log: logger.Named("csv_store")}
}

// Path returns the file backing the store.
func (s *CSVStore) Path() string {
	return s.path
}

// Load reads the output list. A missing file is an empty list.
func (s *CSVStore) Load(_ context.Context) (map[string]types.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make(map[string]types.ResultRecord, len(s.records))
	for _, rec := range s.records {
		out[rec.Key()] = rec
	}
	return out, nil
}

// Records returns the loaded records in file order.
func (s *CSVStore) Records() ([]types.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return append([]types.ResultRecord(nil), s.records...), nil
}

// Put inserts or replaces the record for rec's URL and rewrites the file.
// A record already marked sent is never replaced.
func (s *CSVStore) Put(_ context.Context, rec types.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}

	key := rec.Key()
	if i, ok := s.index[key]; ok {
		if s.records[i].Status.IsSent() {
			s.log.Debug("Keeping existing sent record", zap.String("url", rec.URL))
			return nil
		}
		s.records[i] = rec
	} else {
		s.index[key] = len(s.records)
		s.records = append(s.records, rec)
	}

	return s.writeLocked()
}

func (s *CSVStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	records, err := ReadResults(s.path)
	if err != nil {
		return err
	}

	s.records = nil
	s.index = make(map[string]int, len(records))
	for _, rec := range records {
		key := rec.Key()
		if i, ok := s.index[key]; ok {
			// Later rows win unless the earlier one is already sent.
			if !s.records[i].Status.IsSent() {
				s.records[i] = rec
			}
			continue
		}
		s.index[key] = len(s.records)
		s.records = append(s.records, rec)
	}
	s.loaded = true
	s.log.Debug("Loaded output list", zap.String("path", s.path), zap.Int("records", len(s.records)))
	return nil
}

// writeLocked replaces the file atomically so an interrupted write leaves the previous list intact.
func (s *CSVStore) writeLocked() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := WriteResults(tmp, s.records); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// ReadResults reads an output list. A missing file yields no records.
// Columns are matched by header name, so lists written by older versions
// without timestamp or run_id columns are accepted.
func ReadResults(path string) ([]types.ResultRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ParseResults(f)
}

// ParseResults reads output list CSV content.
func ParseResults(r io.Reader) ([]types.ResultRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		cols[name] = i
	}
	if _, ok := cols["website_url"]; !ok {
		return nil, fmt.Errorf("header must contain a website_url column")
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []types.ResultRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed row: %w", err)
		}

		url := field(row, "website_url")
		if url == "" {
			continue
		}
		records = append(records, types.ResultRecord{
			URL:            url,
			DisplayName:    field(row, "restaurant_name"),
			ContactPageURL: field(row, "contact_page_url"),
			Status:         types.ParseStatus(field(row, "status")),
			Timestamp:      parseTimestamp(field(row, "timestamp")),
			RunID:          field(row, "run_id"),
		})
	}
	return records, nil
}

// WriteResults writes records as output list CSV, header first.
func WriteResults(w io.Writer, records []types.ResultRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(resultHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		ts := ""
		if !rec.Timestamp.IsZero() {
			ts = rec.Timestamp.UTC().Format(time.RFC3339)
		}
		row := []string{rec.URL, rec.DisplayName, rec.ContactPageURL, rec.Status.String(), ts, rec.RunID}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", rec.URL, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if ts, err := time.ParseInLocation(legacyTimeLayout, raw, time.Local); err == nil {
		return ts
	}
	return time.Time{}
}

// TeeStore writes every record to a primary store and any number of mirrors.
// Only the primary is authoritative: it is the one loaded, and only its
// failures are returned. Mirror failures are logged.
type TeeStore struct {
	primary Store
	mirrors []Store
	log     *zap.Logger
}

// NewTeeStore creates a TeeStore.
func NewTeeStore(primary Store, logger *zap.Logger, mirrors ...Store) *TeeStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeeStore{primary: primary, mirrors: mirrors, log: logger.Named("tee_store")}
}

// Load loads the primary store.
func (t *TeeStore) Load(ctx context.Context) (map[string]types.ResultRecord, error) {
	return t.primary.Load(ctx)
}

// Put writes to the primary, then to each mirror.
func (t *TeeStore) Put(ctx context.Context, rec types.ResultRecord) error {
	if err := t.primary.Put(ctx, rec); err != nil {
		return err
	}
	for _, m := range t.mirrors {
		if err := m.Put(ctx, rec); err != nil {
			t.log.Warn("Failed to mirror result", zap.String("url", rec.URL), zap.Error(err))
		}
	}
	return nil
}
