package persist

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// WriteBranchHitCounts persists the cumulative counter array as a
// sequence of (u32 branch_id, u32 hit_count) pairs for non-zero cells,
// little-endian (spec §6), when saveBranchHitCounts is set.
func (s *Store) WriteBranchHitCounts(histogram map[uint32]uint64) error {
	path := filepath.Join(s.outDir, "branch_hit_counts")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("persist: create branch_hit_counts: %w", err)
	}
	defer f.Close()

	buf := make([]byte, 8)
	for branchID, count := range histogram {
		binary.LittleEndian.PutUint32(buf[0:4], branchID)
		hitCount := count
		if hitCount > 0xFFFFFFFF {
			hitCount = 0xFFFFFFFF
		}
		binary.LittleEndian.PutUint32(buf[4:8], uint32(hitCount))
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("persist: write branch_hit_counts entry: %w", err)
		}
	}
	return nil
}

// ReadBranchHitCounts loads a previously written snapshot back into a
// histogram, used by `genfuzz replay` style tooling and tests.
func ReadBranchHitCounts(path string) (map[uint32]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persist: read branch_hit_counts: %w", err)
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("persist: branch_hit_counts has malformed length %d", len(data))
	}

	out := make(map[uint32]uint64, len(data)/8)
	for i := 0; i+8 <= len(data); i += 8 {
		branchID := binary.LittleEndian.Uint32(data[i : i+4])
		count := binary.LittleEndian.Uint32(data[i+4 : i+8])
		out[branchID] = uint64(count)
	}
	return out, nil
}
