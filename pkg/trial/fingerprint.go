package trial

import (
	"errors"
	"fmt"

	"github.com/genfuzz/genfuzz/pkg/corpus"
	"github.com/genfuzz/genfuzz/pkg/guidance"
)

// fingerprintFor derives a dedup key for a FAILURE outcome's error
// (spec §3, §7, GLOSSARY). A Timeout always maps to the distinguished
// "timeout" fingerprint, a TrialFailure carries its own pre-computed
// fingerprint, and anything else is hashed from its Go type name and
// message as a stand-in for "exception class + topmost frame".
func fingerprintFor(err error) corpus.Fingerprint {
	var timeout *guidance.Timeout
	if errors.As(err, &timeout) {
		return corpus.TimeoutFingerprint
	}

	var tf *guidance.TrialFailure
	if errors.As(err, &tf) && tf.Fingerprint != "" {
		return corpus.Fingerprint(tf.Fingerprint)
	}

	return corpus.NewFingerprint(fmt.Sprintf("%T", err), err.Error())
}
