package transcript

// Shift returns a copy of r with every segment and word moved by delta
// seconds. Shifting by d then -d restores the original timings.
func (r Result) Shift(delta float64) Result {
	out := r
	if r.Segments != nil {
		out.Segments = make([]Segment, len(r.Segments))
		for i, seg := range r.Segments {
			seg.Start += delta
			seg.End += delta
			out.Segments[i] = seg
		}
	}
	if r.Words != nil {
		out.Words = make([]Word, len(r.Words))
		for i, w := range r.Words {
			w.Start += delta
			w.End += delta
			out.Words[i] = w
		}
	}
	return out
}
