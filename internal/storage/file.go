package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/cockroachdb/errors"

	"pstitle/internal/models"
)

// FileSink appends one JSON line per record to a file. Records already in
// the file are not written again.
type FileSink struct {
	path string

	mu     sync.Mutex
	file   *os.File
	stored map[int]struct{}
}

// NewFileSink opens path for appending, creating it if needed, and reads the
// indices of the records it already holds.
func NewFileSink(path string) (*FileSink, error) {
	stored, err := readStoredIndices(path)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open output file %s", path)
	}
	return &FileSink{path: path, file: f, stored: stored}, nil
}

// Persist writes the record as a single line in one write call.
func (s *FileSink) Persist(ctx context.Context, rec models.PopulatedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", rec.Record)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.Newf("output file %s is closed", s.path)
	}
	if _, ok := s.stored[rec.Record.Index]; ok {
		return nil
	}
	if _, err := s.file.Write(line); err != nil {
		return errors.Wrapf(err, "append %s to %s", rec.Record, s.path)
	}
	s.stored[rec.Record.Index] = struct{}{}
	return nil
}

// FirstMissing implements Resumer.
func (s *FileSink) FirstMissing(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return firstMissing(s.stored), nil
}

// Close implements Sink.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return errors.Wrapf(err, "close output file %s", s.path)
}

// readStoredIndices returns the record indices found in an existing output
// file. A missing file holds no records.
func readStoredIndices(path string) (map[int]struct{}, error) {
	stored := make(map[int]struct{})
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return stored, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open output file %s", path)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec struct {
			Index *int `json:"index"`
		}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil || rec.Index == nil {
			return nil, errors.WithHint(
				errors.Newf("%s:%d is not a stored record", path, line),
				"remove the line or choose another --output",
			)
		}
		stored[*rec.Index] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read output file %s", path)
	}
	return stored, nil
}
