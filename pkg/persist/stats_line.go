package persist

import (
	"fmt"

	"github.com/genfuzz/genfuzz/pkg/trial"
)

// Style selects the stats-line rendering (spec §4.9, §12 "dual style").
type Style string

const (
	StyleAFL       Style = "afl"
	StyleLibFuzzer Style = "libfuzzer"
)

// StatsLine renders one snapshot as a single line of text. AFL style
// favors a fixed-width label/value layout; libFuzzer style favors a
// terse single line prefixed by the total exec count.
func StatsLine(style Style, s trial.Snapshot) string {
	if style == StyleLibFuzzer {
		return fmt.Sprintf("#%d\tNEW\tcov: %d exec/s: %.0f corpus: %d h1: %.2f failures: %d",
			s.Stats.TotalExecs, int(s.Diversity.H0), s.ExecsPerSec, s.CorpusSize, s.Diversity.H1, s.Failures)
	}

	return fmt.Sprintf(
		"execs: %d  valid: %d  invalid: %d  exec/s: %.1f  corpus: %d  branches: %d  H1: %.3f  H2: %.3f  failures: %d",
		s.Stats.TotalExecs, s.Stats.ValidExecs, s.Stats.InvalidExecs, s.ExecsPerSec,
		s.CorpusSize, int(s.Diversity.H0), s.Diversity.H1, s.Diversity.H2, s.Failures,
	)
}
