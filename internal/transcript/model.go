package transcript

// Segment is a time-bounded span of transcribed speech. IDs are unique within
// a single provider result and renumbered by Merge.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Word is a single token with its own timing.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Result is the verbose output of one provider call, or the merged output of
// several. A nil Words slice means word timings were not produced.
type Result struct {
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words,omitempty"`
}

// HasWords reports whether word-level timings are present.
func (r Result) HasWords() bool {
	return r.Words != nil
}

// ChunkRef locates one contiguous slice of the normalized audio.
type ChunkRef struct {
	Index    int     `json:"index"`
	Key      string  `json:"key"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
}

// End returns the chunk's end position in the source audio.
func (c ChunkRef) End() float64 {
	return c.Offset + c.Duration
}

// ChunkResult pairs a chunk with its offset-adjusted provider result.
type ChunkResult struct {
	Chunk  ChunkRef
	Result Result
}
