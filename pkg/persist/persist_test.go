package persist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genfuzz/genfuzz/pkg/diversity"
	"github.com/genfuzz/genfuzz/pkg/trial"
)

func TestWriteFailureLinear(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if err := s.WriteFailure(1, []byte{0x2A}, nil, false, "panic: x == 42"); err != nil {
		t.Fatalf("WriteFailure: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "failures", "1"))
	if err != nil {
		t.Fatalf("reading failure bytes: %v", err)
	}
	if string(data) != "\x2a" {
		t.Fatalf("failure bytes = %x, want 2a", data)
	}
	trace, err := os.ReadFile(filepath.Join(dir, "failures", "1.stacktrace"))
	if err != nil {
		t.Fatalf("reading stacktrace: %v", err)
	}
	if string(trace) != "panic: x == 42" {
		t.Fatalf("stacktrace = %q", trace)
	}
}

func TestWriteFailureSplitMode(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.WriteFailure(2, []byte{1, 2}, []byte{9}, true, "boom"); err != nil {
		t.Fatalf("WriteFailure: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "failures", "2.structure")); err != nil {
		t.Fatalf("expected structure file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "failures", "2.value")); err != nil {
		t.Fatalf("expected value file: %v", err)
	}
}

func TestAppendPlotRowWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.AppendPlotRow(PlotRow{Timestamp: time.Unix(1000, 0), TotalExecs: 5}); err != nil {
		t.Fatalf("AppendPlotRow: %v", err)
	}
	if err := s.AppendPlotRow(PlotRow{Timestamp: time.Unix(1001, 0), TotalExecs: 6}); err != nil {
		t.Fatalf("AppendPlotRow: %v", err)
	}
	s.Close()

	data, err := os.ReadFile(filepath.Join(dir, "plot_data"))
	if err != nil {
		t.Fatal(err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 3 {
		t.Fatalf("expected 3 lines (header + 2 rows), got %d", lines)
	}
}

func TestBranchHitCountsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	histogram := map[uint32]uint64{1: 5, 2: 10}
	if err := s.WriteBranchHitCounts(histogram); err != nil {
		t.Fatalf("WriteBranchHitCounts: %v", err)
	}

	got, err := ReadBranchHitCounts(filepath.Join(dir, "branch_hit_counts"))
	if err != nil {
		t.Fatalf("ReadBranchHitCounts: %v", err)
	}
	if len(got) != len(histogram) {
		t.Fatalf("got %d entries, want %d", len(got), len(histogram))
	}
	for k, v := range histogram {
		if got[k] != v {
			t.Errorf("branch %d = %d, want %d", k, got[k], v)
		}
	}
}

func TestStatsLineStyles(t *testing.T) {
	snap := trial.Snapshot{
		Stats:       trial.Stats{TotalExecs: 100, ValidExecs: 90, InvalidExecs: 10},
		ExecsPerSec: 42.5,
		CorpusSize:  3,
		Diversity:   diversity.Numbers{H0: 3, H1: 2.5, H2: 2.1},
		Failures:    1,
	}

	afl := StatsLine(StyleAFL, snap)
	if afl == "" {
		t.Fatal("expected non-empty AFL-style line")
	}

	lib := StatsLine(StyleLibFuzzer, snap)
	if lib == "" {
		t.Fatal("expected non-empty libFuzzer-style line")
	}
	if afl == lib {
		t.Fatal("expected distinct renderings for the two styles")
	}
}

func TestExtractField(t *testing.T) {
	blob := `{"name":"payload","value":42,"nested":{"flag":true}}`
	v, ok := ExtractField(blob, "nested.flag")
	if !ok || v != "true" {
		t.Fatalf("ExtractField(nested.flag) = %q,%v want true,true", v, ok)
	}
	if _, ok := ExtractField(blob, "missing.path"); ok {
		t.Fatal("expected missing path to report not-found")
	}
}
