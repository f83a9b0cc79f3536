// Package persist writes the fuzzer's durable output: failure files,
// the plot_data CSV, the branch-hit-count snapshot, and formats the
// periodic stats line (spec §4.9, §6).
package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store owns the output directory layout from spec §4.9:
//
//	corpus/        written directly by pkg/corpus.Corpus
//	failures/      failing inputs + .stacktrace siblings (this package)
//	plot_data      CSV: timestamp, total_execs, valid_execs, corpus_size, covered_branches, H1, H2
//	branch_hit_counts  optional binary snapshot of cumulative counters
//	fuzz.log       human-readable event log (internal/xlog writes here)
type Store struct {
	mu        sync.Mutex
	outDir    string
	plotFile  *os.File
	wroteHead bool
}

// NewStore creates the output directory layout under outDir and
// returns a Store ready to accept writes.
func NewStore(outDir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(outDir, "failures"), 0o755); err != nil {
		return nil, fmt.Errorf("persist: create failures dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(outDir, "corpus"), 0o755); err != nil {
		return nil, fmt.Errorf("persist: create corpus dir: %w", err)
	}

	plotFile, err := os.OpenFile(filepath.Join(outDir, "plot_data"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("persist: open plot_data: %w", err)
	}
	info, _ := plotFile.Stat()

	return &Store{
		outDir:    outDir,
		plotFile:  plotFile,
		wroteHead: info != nil && info.Size() > 0,
	}, nil
}

// Close flushes and releases the Store's open file handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plotFile.Close()
}

// WriteFailure implements trial.FailureWriter: persists the failing
// input's bytes under failures/<id> (or the .structure/.value pair in
// split mode) and its trace under failures/<id>.stacktrace.
func (s *Store) WriteFailure(id int64, bytes, structureBytes []byte, splitMode bool, stacktrace string) error {
	base := filepath.Join(s.outDir, "failures", fmt.Sprintf("%d", id))

	if splitMode {
		if err := os.WriteFile(base+".structure", structureBytes, 0o644); err != nil {
			return fmt.Errorf("persist: write failure structure bytes: %w", err)
		}
		if err := os.WriteFile(base+".value", bytes, 0o644); err != nil {
			return fmt.Errorf("persist: write failure value bytes: %w", err)
		}
	} else if err := os.WriteFile(base, bytes, 0o644); err != nil {
		return fmt.Errorf("persist: write failure bytes: %w", err)
	}

	if err := os.WriteFile(base+".stacktrace", []byte(stacktrace), 0o644); err != nil {
		return fmt.Errorf("persist: write stacktrace: %w", err)
	}
	return nil
}

// PlotRow is one line of plot_data (spec §4.9).
type PlotRow struct {
	Timestamp       time.Time
	TotalExecs      int64
	ValidExecs      int64
	CorpusSize      int
	CoveredBranches int
	H1              float64
	H2              float64
}

// AppendPlotRow writes one CSV row, writing the header first if the
// file was just created.
func (s *Store) AppendPlotRow(row PlotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wroteHead {
		if _, err := s.plotFile.WriteString("timestamp,total_execs,valid_execs,corpus_size,covered_branches,H1,H2\n"); err != nil {
			return fmt.Errorf("persist: write plot_data header: %w", err)
		}
		s.wroteHead = true
	}

	line := fmt.Sprintf("%d,%d,%d,%d,%d,%.6f,%.6f\n",
		row.Timestamp.Unix(), row.TotalExecs, row.ValidExecs, row.CorpusSize, row.CoveredBranches, row.H1, row.H2)
	if _, err := s.plotFile.WriteString(line); err != nil {
		return fmt.Errorf("persist: write plot_data row: %w", err)
	}
	return nil
}
