package monitor

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genfuzz/genfuzz/pkg/trial"
)

type fakeSource struct {
	snap trial.Snapshot
}

func (f fakeSource) Snapshot() trial.Snapshot { return f.snap }

func TestStatsJSON(t *testing.T) {
	src := fakeSource{snap: trial.Snapshot{CorpusSize: 7, Failures: 2}}
	s := New(src, t.TempDir(), time.Second)

	req := httptest.NewRequest("GET", "/stats.json", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Fatal("expected non-empty JSON body")
	}
}

func TestCorpusListsFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "corpus"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "corpus", "id_1"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(fakeSource{}, dir, time.Second)
	req := httptest.NewRequest("GET", "/corpus", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `["id_1"]` {
		t.Fatalf("body = %s", body)
	}
}

func TestFailuresMissingDirReturnsEmptyList(t *testing.T) {
	s := New(fakeSource{}, t.TempDir(), time.Second)
	req := httptest.NewRequest("GET", "/failures", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `[]` {
		t.Fatalf("body = %s", body)
	}
}

func TestPlotDataServesCSV(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "plot_data"), []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(fakeSource{}, dir, time.Second)
	req := httptest.NewRequest("GET", "/plot_data", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "a,b\n1,2\n" {
		t.Fatalf("body = %s", body)
	}
}
