package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/genfuzz/genfuzz/pkg/trial"
)

type fakeSource struct{ snap trial.Snapshot }

func (f fakeSource) Snapshot() trial.Snapshot { return f.snap }

func TestUpdateOnTickRefreshesSnapshot(t *testing.T) {
	src := fakeSource{snap: trial.Snapshot{CorpusSize: 3, Failures: 1}}
	m := New(src, time.Second)

	updated, cmd := m.Update(tickMsg(time.Now()))
	mm := updated.(Model)
	if mm.snap.CorpusSize != 3 {
		t.Fatalf("snap.CorpusSize = %d, want 3", mm.snap.CorpusSize)
	}
	if cmd == nil {
		t.Fatal("expected a follow-up tick command")
	}
}

func TestUpdateOnQuitKeySetsQuitting(t *testing.T) {
	m := New(fakeSource{}, time.Second)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	mm := updated.(Model)
	if !mm.quitting {
		t.Fatal("expected quitting to be set")
	}
	if cmd == nil {
		t.Fatal("expected tea.Quit command")
	}
}

func TestViewRendersCorpusSize(t *testing.T) {
	src := fakeSource{snap: trial.Snapshot{CorpusSize: 42}}
	m := New(src, time.Second)
	updated, _ := m.Update(tickMsg(time.Now()))
	view := updated.(Model).View()
	if !strings.Contains(view, "42") {
		t.Fatalf("view does not contain corpus size: %s", view)
	}
}

func TestViewEmptyWhenQuitting(t *testing.T) {
	m := New(fakeSource{}, time.Second)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if view := updated.(Model).View(); view != "" {
		t.Fatalf("expected empty view after quitting, got %q", view)
	}
}
