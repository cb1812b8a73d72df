// Package spool persists hazard reports that have been accepted by the relay
// but not yet delivered to the hosted backend.
//
// The spool is a single JSON blob rewritten in full on every mutation, plus
// one photo sidecar file per report that carries one. Records are write-once:
// they enter via Save and leave via Remove after the hosted backend confirms
// the insert. A corrupted or unreadable blob reads as an empty spool so one
// bad write cannot wedge every later submission.
package spool

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/seamark/hazard-relay/internal/domain"
)

var (
	// ErrFull is returned by Save when the spool holds its configured
	// maximum of pending reports.
	ErrFull = errors.New("spool is full")

	// ErrDuplicate is returned by Save when a record with the same ID is
	// already spooled. Records are write-once; there is no update path.
	ErrDuplicate = errors.New("report already spooled")
)

const (
	pendingFile = "pending.json"
	photoDir    = "photos"
)

// Store is the file-backed pending-report spool. All access goes through one
// mutex; the relay is the only writer of its spool directory.
type Store struct {
	dir        string
	maxPending int
	logger     *slog.Logger

	mu sync.Mutex
}

// New opens (creating if needed) the spool at dir. maxPending caps how many
// reports Save will accept before returning ErrFull; zero means no cap.
func New(dir string, maxPending int, logger *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("spool dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, photoDir), 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Store{dir: dir, maxPending: maxPending, logger: logger}, nil
}

// Save appends one report to the spool, writing its photo sidecar first when
// photo bytes are supplied. The record must carry a PhotoFile name whenever
// photo bytes are present.
func (s *Store) Save(report domain.Report, photo []byte) error {
	if report.ID == "" {
		return errors.New("report ID is required")
	}
	if len(photo) > 0 && report.PhotoFile == "" {
		return errors.New("photo bytes supplied without a photo filename")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reports := s.load()
	if s.maxPending > 0 && len(reports) >= s.maxPending {
		return fmt.Errorf("%w: %d pending", ErrFull, len(reports))
	}
	for _, r := range reports {
		if r.ID == report.ID {
			return fmt.Errorf("%w: %s", ErrDuplicate, report.ID)
		}
	}

	if len(photo) > 0 {
		if err := os.WriteFile(s.photoPath(report.PhotoFile), photo, 0o600); err != nil {
			return fmt.Errorf("write photo sidecar: %w", err)
		}
	}

	if err := s.write(append(reports, report)); err != nil {
		if len(photo) > 0 {
			// The record never made it in, so the sidecar must not
			// survive either.
			os.Remove(s.photoPath(report.PhotoFile))
		}
		return err
	}
	return nil
}

// List returns every spooled report in queue order. An unreadable spool reads
// as empty.
func (s *Store) List() []domain.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Count returns the number of spooled reports.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load())
}

// Remove deletes one report and its photo sidecar. Removing an ID that is not
// spooled is a no-op, so a re-run after a partial sync pass stays clean.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports := s.load()
	kept := make([]domain.Report, 0, len(reports))
	var photoFile string
	found := false
	for _, r := range reports {
		if r.ID == id {
			found = true
			photoFile = r.PhotoFile
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return nil
	}

	if err := s.write(kept); err != nil {
		return err
	}
	if photoFile != "" {
		if err := os.Remove(s.photoPath(photoFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove photo sidecar", "photo", photoFile, "error", err)
		}
	}
	return nil
}

// Clear wipes the spool: the pending blob and every photo sidecar, including
// orphans left by earlier crashes.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.write(nil); err != nil {
		return err
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, photoDir))
	if err != nil {
		return fmt.Errorf("read photo dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(s.photoPath(entry.Name())); err != nil {
			s.logger.Warn("remove photo sidecar", "photo", entry.Name(), "error", err)
		}
	}
	return nil
}

// Photo reads the sidecar bytes for a spooled report.
func (s *Store) Photo(report domain.Report) ([]byte, error) {
	if !report.HasPhoto() {
		return nil, fmt.Errorf("report %s has no photo", report.ID)
	}
	data, err := os.ReadFile(s.photoPath(report.PhotoFile))
	if err != nil {
		return nil, fmt.Errorf("read photo sidecar: %w", err)
	}
	return data, nil
}

// load reads the whole pending blob under the store lock. Missing, unreadable,
// and corrupted blobs all read as empty; the latter two are logged.
func (s *Store) load() []domain.Report {
	data, err := os.ReadFile(filepath.Join(s.dir, pendingFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		s.logger.Warn("pending blob unreadable, treating as empty", "error", err)
		return nil
	}

	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		s.logger.Warn("pending blob corrupted, treating as empty", "error", err)
		return nil
	}
	return reports
}

// write replaces the whole pending blob via a temp file and rename so a crash
// mid-write leaves the previous blob intact.
func (s *Store) write(reports []domain.Report) error {
	if reports == nil {
		reports = []domain.Report{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending blob: %w", err)
	}

	path := filepath.Join(s.dir, pendingFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write pending blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace pending blob: %w", err)
	}
	return nil
}

func (s *Store) photoPath(name string) string {
	return filepath.Join(s.dir, photoDir, name)
}
