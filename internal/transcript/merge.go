package transcript

import (
	"slices"
	"strings"
)

// Merge combines offset-adjusted chunk results into one chronological
// transcript. Segment IDs are renumbered from zero. Words are kept only when
// every chunk produced them. Duration is the end of the final segment, or the
// sum of provider durations when no segments exist.
//
// A single chunk is returned as-is.
func Merge(results []ChunkResult) Result {
	switch len(results) {
	case 0:
		return Result{}
	case 1:
		return results[0].Result
	}

	ordered := slices.Clone(results)
	slices.SortStableFunc(ordered, func(a, b ChunkResult) int {
		switch {
		case a.Chunk.Offset < b.Chunk.Offset:
			return -1
		case a.Chunk.Offset > b.Chunk.Offset:
			return 1
		default:
			return 0
		}
	})

	var merged Result
	allWords := true
	texts := make([]string, 0, len(ordered))
	var durationSum float64
	for _, item := range ordered {
		res := item.Result
		if merged.Language == "" {
			merged.Language = res.Language
		}
		if text := strings.TrimSpace(res.Text); text != "" {
			texts = append(texts, text)
		}
		for _, seg := range res.Segments {
			seg.ID = len(merged.Segments)
			merged.Segments = append(merged.Segments, seg)
		}
		if res.Words == nil {
			allWords = false
		} else if allWords {
			merged.Words = append(merged.Words, res.Words...)
		}
		durationSum += res.Duration
	}
	if allWords {
		if merged.Words == nil {
			merged.Words = []Word{}
		}
	} else {
		merged.Words = nil
	}
	merged.Text = strings.Join(texts, " ")
	if n := len(merged.Segments); n > 0 {
		merged.Duration = merged.Segments[n-1].End
	} else {
		merged.Duration = durationSum
	}
	return merged
}
