// Package ledger owns the on-disk battle record: the append-only results CSV
// and the per-image tags JSON that live alongside the captured screenshots.
// Both files are shared with external viewers, so the formats are plain and
// stable: CSV with a one-line header, and an indented JSON object.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"clipmark/internal/logging"
)

const (
	resultsFile = "_results.csv"
	tagsFile    = "_tags.json"

	timeLayout = "2006-01-02 15:04:05"
)

// Record is one committed pairing: a screenshot filed under an outcome.
type Record struct {
	Timestamp time.Time
	Image     string // file name only, never a path
	Result    string // win, lose or disconnect; free text tolerated on read
	Season    string
}

// Ledger reads and appends records under one directory. Safe for concurrent
// use; the association engine appends while the CLI and the classifier read.
type Ledger struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

// New returns a ledger rooted at dir. The directory must already exist.
func New(dir string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Ledger{
		dir:    dir,
		logger: logging.WithComponent(logger, "ledger"),
	}
}

// Dir returns the ledger's root directory.
func (l *Ledger) Dir() string {
	return l.dir
}

func (l *Ledger) resultsPath() string {
	return filepath.Join(l.dir, resultsFile)
}

func (l *Ledger) tagsPath() string {
	return filepath.Join(l.dir, tagsFile)
}

// Append writes one record to the results CSV, emitting the header first when
// the file does not exist yet.
func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.resultsPath()
	_, statErr := os.Stat(path)
	needHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if needHeader {
		if err := w.Write([]string{"timestamp", "image", "result", "season"}); err != nil {
			return fmt.Errorf("write results header: %w", err)
		}
	}
	row := []string{rec.Timestamp.Local().Format(timeLayout), rec.Image, rec.Result, rec.Season}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write results row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results csv: %w", err)
	}
	return nil
}

// Records loads every parseable row from the results CSV. A missing file is an
// empty ledger, and malformed rows are skipped rather than failing the load:
// the file is shared with external tools and a single bad row must not take
// the daemon's counters down with it.
func (l *Ledger) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.resultsPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open results csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			l.logger.Warn("skipping malformed results row", logging.Error(err))
			continue
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == "timestamp" {
				continue
			}
		}
		if len(row) < 3 {
			continue
		}
		ts, err := time.ParseInLocation(timeLayout, row[0], time.Local)
		if err != nil {
			l.logger.Warn("skipping results row with bad timestamp",
				logging.String("value", row[0]))
			continue
		}
		rec := Record{Timestamp: ts, Image: row[1], Result: row[2]}
		if len(row) > 3 {
			rec.Season = row[3]
		}
		out = append(out, rec)
	}
	return out, nil
}
