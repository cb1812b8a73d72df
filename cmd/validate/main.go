// Command validate performs integrity checks on a relay spool directory: the
// pending blob, every record in it, photo sidecar consistency, and queue
// ordering. It reads the blob directly rather than through the spool package
// because the relay deliberately treats a corrupted blob as empty; validate
// exists to surface exactly that damage before it costs someone their queued
// reports.
//
// Usage:
//
//	go run ./cmd/validate -dir ./spool
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/seamark/hazard-relay/internal/domain"
)

const (
	pendingFile = "pending.json"
	photoDir    = "photos"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "spool directory to validate")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir); code != 0 {
		os.Exit(code)
	}
}

func run(dir string) int {
	fmt.Println("=== Spool Integrity Validation ===")
	fmt.Println()

	reports, blobPhase := loadBlob(dir)
	sidecars, err := listSidecars(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read photo dir: %v\n", err)
		return 1
	}

	phases := []*phase{
		blobPhase,
		validateRecords(reports),
		validateSidecars(reports, sidecars),
		validateOrdering(reports),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d pending, %d photo sidecars\n", len(reports), len(sidecars))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadBlob reads and parses the pending blob. A missing blob is a valid empty
// spool; anything unreadable or unparsable is exactly what this tool is for.
func loadBlob(dir string) ([]domain.Report, *phase) {
	p := &phase{name: "pending blob parses"}

	data, err := os.ReadFile(filepath.Join(dir, pendingFile))
	if os.IsNotExist(err) {
		return nil, p
	}
	if err != nil {
		p.errorf("read %s: %v", pendingFile, err)
		return nil, p
	}

	var reports []domain.Report
	if err := json.Unmarshal(data, &reports); err != nil {
		p.errorf("parse %s: %v (the relay would read this spool as empty)", pendingFile, err)
		return nil, p
	}
	return reports, p
}

func listSidecars(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, photoDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func validateRecords(reports []domain.Report) *phase {
	p := &phase{name: "record validity"}
	now := time.Now().UTC()
	seen := make(map[string]int, len(reports))

	for i, r := range reports {
		where := fmt.Sprintf("record %d (%s)", i, r.ID)

		if r.ID == "" {
			p.errorf("record %d: empty ID", i)
		} else if prev, dup := seen[r.ID]; dup {
			p.errorf("%s: duplicate of record %d", where, prev)
		} else {
			seen[r.ID] = i
		}

		if !domain.ValidHazardType(r.Type) {
			p.errorf("%s: unknown hazard type %q", where, r.Type)
		}
		if r.Severity < domain.SeverityMin || r.Severity > domain.SeverityMax {
			p.errorf("%s: severity %d out of range [%d,%d]", where, r.Severity, domain.SeverityMin, domain.SeverityMax)
		}
		if r.Lat < -90 || r.Lat > 90 {
			p.errorf("%s: latitude %v out of range", where, r.Lat)
		}
		if r.Lng < -180 || r.Lng > 180 {
			p.errorf("%s: longitude %v out of range", where, r.Lng)
		}
		if r.Status != domain.StatusPendingUpload {
			p.errorf("%s: status %q, want %q", where, r.Status, domain.StatusPendingUpload)
		}
		if r.QueuedAt.IsZero() {
			p.errorf("%s: zero queue time", where)
		} else if r.QueuedAt.After(now.Add(time.Minute)) {
			p.errorf("%s: queued in the future (%s)", where, r.QueuedAt.Format(time.RFC3339))
		}
	}
	return p
}

var sidecarExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func validateSidecars(reports []domain.Report, sidecars []string) *phase {
	p := &phase{name: "photo sidecars consistent"}

	present := make(map[string]bool, len(sidecars))
	for _, name := range sidecars {
		present[name] = true
	}

	referenced := make(map[string]bool)
	for i, r := range reports {
		if !r.HasPhoto() {
			continue
		}
		where := fmt.Sprintf("record %d (%s)", i, r.ID)

		if r.PhotoFile != filepath.Base(r.PhotoFile) {
			p.errorf("%s: photo name %q escapes the photo dir", where, r.PhotoFile)
			continue
		}
		if !sidecarExts[strings.ToLower(filepath.Ext(r.PhotoFile))] {
			p.errorf("%s: unrecognized photo extension %q", where, filepath.Ext(r.PhotoFile))
		}
		if referenced[r.PhotoFile] {
			p.errorf("%s: photo %q referenced by more than one record", where, r.PhotoFile)
		}
		referenced[r.PhotoFile] = true

		if !present[r.PhotoFile] {
			p.errorf("%s: photo sidecar %q missing; the report would sync without its photo", where, r.PhotoFile)
		}
	}

	// Orphans: the relay tolerates them (Clear sweeps them up), but they
	// mean a past Save was interrupted.
	for _, name := range sidecars {
		if !referenced[name] {
			p.errorf("orphan sidecar %q not referenced by any record", name)
		}
	}
	return p
}

// validateOrdering checks that queue times never decrease through the blob.
// The sync pass walks records in blob order, so a regression here means
// reports sync out of the order they were taken in.
func validateOrdering(reports []domain.Report) *phase {
	p := &phase{name: "queue order preserved"}

	for i := 1; i < len(reports); i++ {
		if reports[i].QueuedAt.Before(reports[i-1].QueuedAt) {
			p.errorf("record %d (%s) queued at %s, before record %d (%s) at %s",
				i, reports[i].ID, reports[i].QueuedAt.Format(time.RFC3339),
				i-1, reports[i-1].ID, reports[i-1].QueuedAt.Format(time.RFC3339))
		}
	}
	return p
}
