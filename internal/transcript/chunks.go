package transcript

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

const coverageEpsilon = 1e-6

// PlanChunks divides total seconds of audio into consecutive chunks of
// chunkSeconds. The last chunk carries the remainder. Keys are left empty for
// the caller to assign.
func PlanChunks(total, chunkSeconds float64) []ChunkRef {
	if total <= 0 || chunkSeconds <= 0 {
		return nil
	}
	count := int(math.Ceil(total/chunkSeconds - coverageEpsilon))
	if count < 1 {
		count = 1
	}
	plan := make([]ChunkRef, 0, count)
	for i := 0; i < count; i++ {
		offset := float64(i) * chunkSeconds
		duration := chunkSeconds
		if i == count-1 {
			duration = total - offset
		}
		plan = append(plan, ChunkRef{Index: i, Offset: offset, Duration: duration})
	}
	return plan
}

// SortChunks orders chunks by offset and renumbers their indexes.
func SortChunks(chunks []ChunkRef) []ChunkRef {
	ordered := slices.Clone(chunks)
	slices.SortStableFunc(ordered, func(a, b ChunkRef) int {
		switch {
		case a.Offset < b.Offset:
			return -1
		case a.Offset > b.Offset:
			return 1
		default:
			return 0
		}
	})
	for i := range ordered {
		ordered[i].Index = i
	}
	return ordered
}

// ValidateCoverage checks that chunks, ordered by offset, tile [0, total]
// without gaps or overlaps. tolerance bounds the difference between the last
// chunk's end and total.
func ValidateCoverage(chunks []ChunkRef, total, tolerance float64) error {
	if len(chunks) == 0 {
		return errors.New("no chunks")
	}
	ordered := SortChunks(chunks)
	if math.Abs(ordered[0].Offset) > coverageEpsilon {
		return fmt.Errorf("first chunk starts at %.3fs", ordered[0].Offset)
	}
	for i, chunk := range ordered {
		if chunk.Duration <= 0 {
			return fmt.Errorf("chunk %d has non-positive duration %.3fs", i, chunk.Duration)
		}
		if i == 0 {
			continue
		}
		prevEnd := ordered[i-1].End()
		if math.Abs(chunk.Offset-prevEnd) > coverageEpsilon {
			return fmt.Errorf("chunk %d starts at %.3fs, previous ends at %.3fs", i, chunk.Offset, prevEnd)
		}
	}
	if end := ordered[len(ordered)-1].End(); math.Abs(end-total) > tolerance {
		return fmt.Errorf("chunks end at %.3fs, audio is %.3fs", end, total)
	}
	return nil
}
