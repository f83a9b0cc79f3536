// Package choice implements the byte-stream abstraction generators read
// as randomness (spec §4.1). Two modes are provided: Linear, a single
// extensible byte vector, and Split, a pair of vectors (structure and
// value) plus an access log recording the interleaving of reads.
package choice

import (
	"crypto/rand"
)

// Stream is the contract generators pull bytes from. EOF is a signal,
// not an error: generators treat it as "stop expanding this structure".
type Stream interface {
	// ReadByte returns the next byte, or ok=false on EOF.
	ReadByte() (b byte, ok bool)

	// Bytes returns the stream's concrete byte sequence: the initial
	// vector plus any bytes appended by extension so far (extension
	// happens only when the stream is not fixed-size). This is what the
	// corpus persists.
	Bytes() []byte
}

// Extender draws n fresh bytes to grow a stream past its initial
// vector. The default (Default) pulls from crypto/rand; callers that
// need run-to-run determinism under a fixed randomSeed (spec §8 S6)
// supply one backed by a seeded math/rand.Rand instead.
type Extender func(n int) []byte

// Default extends a stream with crypto/rand bytes.
func Default(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read on the stdlib reader does not fail in
		// practice; fall back to zero bytes rather than panic so a
		// starved entropy source degrades the input instead of the loop.
		return b
	}
	return b
}

// Linear is a flat byte vector with a read cursor. If FixedSize, reads
// past the end of Data return EOF. Otherwise the stream grows on demand:
// each out-of-bounds read appends a fresh byte from extend, which is how
// generators are allowed to consume "exactly as much as they need".
type Linear struct {
	data      []byte
	cursor    int
	fixedSize bool
	extend    Extender
}

// NewLinear wraps data as a Stream using the default crypto/rand
// extender. When fixedSize is true the stream never grows past
// len(data); otherwise reads past the end extend it.
func NewLinear(data []byte, fixedSize bool) *Linear {
	return NewLinearWithExtender(data, fixedSize, Default)
}

// NewLinearWithExtender is NewLinear with an explicit extension source,
// used by the scheduler to make stream growth reproducible under a
// fixed randomSeed.
func NewLinearWithExtender(data []byte, fixedSize bool, extend Extender) *Linear {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Linear{data: buf, fixedSize: fixedSize, extend: extend}
}

// ReadByte implements Stream.
func (l *Linear) ReadByte() (byte, bool) {
	if l.cursor >= len(l.data) {
		if l.fixedSize {
			return 0, false
		}
		l.data = append(l.data, l.extend(1)[0])
	}
	b := l.data[l.cursor]
	l.cursor++
	return b, true
}

// Bytes implements Stream.
func (l *Linear) Bytes() []byte {
	out := make([]byte, len(l.data))
	copy(out, l.data)
	return out
}

// Cursor returns the current read position, used by the mutation engine
// to bound offsets to bytes actually consumed by the last run.
func (l *Linear) Cursor() int { return l.cursor }

// Tag marks a byte read from a Split stream as structural (affects
// shape: lengths, variant tags) or value (affects leaf content only).
type Tag uint8

const (
	TagStructure Tag = iota
	TagValue
)

// AccessLogEntry records one read from a Split stream: which substream
// it came from and at what offset within that substream. Replaying the
// log lets a surgical mutation regenerate an input without desyncing
// the other substream's cursor (spec §3, §4.6, §9).
type AccessLogEntry struct {
	Tag    Tag
	Offset int
}

// Split backs split-mode choice: two independently-cursored vectors
// (structure, value) plus a merged access log of the order reads
// happened in. Generators explicitly request one or the other.
type Split struct {
	structure       []byte
	value           []byte
	structureCursor int
	valueCursor     int
	fixedSize       bool
	extend          Extender
	log             []AccessLogEntry
}

// NewSplit wraps a structure/value byte pair as a split Stream using the
// default crypto/rand extender.
func NewSplit(structure, value []byte, fixedSize bool) *Split {
	return NewSplitWithExtender(structure, value, fixedSize, Default)
}

// NewSplitWithExtender is NewSplit with an explicit extension source,
// used by the scheduler to make stream growth reproducible under a
// fixed randomSeed.
func NewSplitWithExtender(structure, value []byte, fixedSize bool, extend Extender) *Split {
	s := make([]byte, len(structure))
	copy(s, structure)
	v := make([]byte, len(value))
	copy(v, value)
	return &Split{structure: s, value: v, fixedSize: fixedSize, extend: extend}
}

// ReadStructure reads one byte from the structural substream.
func (s *Split) ReadStructure() (byte, bool) {
	b, ok := s.read(TagStructure)
	return b, ok
}

// ReadValue reads one byte from the value substream.
func (s *Split) ReadValue() (byte, bool) {
	b, ok := s.read(TagValue)
	return b, ok
}

// ReadByte implements Stream by defaulting to the value substream; code
// that cares about the structure/value distinction should call
// ReadStructure/ReadValue directly.
func (s *Split) ReadByte() (byte, bool) {
	return s.ReadValue()
}

func (s *Split) read(tag Tag) (byte, bool) {
	var cursor *int
	var data *[]byte
	switch tag {
	case TagStructure:
		cursor, data = &s.structureCursor, &s.structure
	default:
		cursor, data = &s.valueCursor, &s.value
	}

	if *cursor >= len(*data) {
		if s.fixedSize {
			return 0, false
		}
		*data = append(*data, s.extend(1)[0])
	}

	b := (*data)[*cursor]
	offset := *cursor
	*cursor++
	s.log = append(s.log, AccessLogEntry{Tag: tag, Offset: offset})
	return b, true
}

// Bytes implements Stream by returning the value substream's bytes;
// callers that need both substreams should use StructureBytes/ValueBytes.
func (s *Split) Bytes() []byte { return s.ValueBytes() }

// StructureBytes returns the concrete structural substream.
func (s *Split) StructureBytes() []byte {
	out := make([]byte, len(s.structure))
	copy(out, s.structure)
	return out
}

// ValueBytes returns the concrete value substream.
func (s *Split) ValueBytes() []byte {
	out := make([]byte, len(s.value))
	copy(out, s.value)
	return out
}

// AccessLog returns the recorded read interleaving.
func (s *Split) AccessLog() []AccessLogEntry {
	out := make([]AccessLogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// StructureCursor returns how many structural bytes were actually read.
func (s *Split) StructureCursor() int { return s.structureCursor }

// ValueCursor returns how many value bytes were actually read.
func (s *Split) ValueCursor() int { return s.valueCursor }
