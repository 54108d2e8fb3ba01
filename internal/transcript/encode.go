package transcript

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Format names a rendering of a transcript.
type Format string

const (
	FormatText    Format = "text"
	FormatSRT     Format = "srt"
	FormatVTT     Format = "vtt"
	FormatJSON    Format = "json"
	FormatVerbose Format = "verbose"
	FormatWords   Format = "words"
)

// Formats lists every supported format in display order.
var Formats = []Format{FormatText, FormatSRT, FormatVTT, FormatJSON, FormatVerbose, FormatWords}

// ParseFormat accepts a format name, case-insensitively.
func ParseFormat(value string) (Format, error) {
	candidate := Format(strings.ToLower(strings.TrimSpace(value)))
	switch candidate {
	case "txt":
		return FormatText, nil
	case "webvtt":
		return FormatVTT, nil
	case "verbose_json":
		return FormatVerbose, nil
	}
	for _, f := range Formats {
		if f == candidate {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q", value)
}

// Rendered holds every output format for one transcript. WordsJSON is empty
// when the transcript has no word timings.
type Rendered struct {
	Text        string
	SRT         string
	VTT         string
	JSON        string
	VerboseJSON string
	WordsJSON   string
}

// Render produces all formats for r. Output is deterministic for a given input.
func Render(r Result) (Rendered, error) {
	compact, err := EncodeJSON(r)
	if err != nil {
		return Rendered{}, err
	}
	verbose, err := EncodeVerboseJSON(r)
	if err != nil {
		return Rendered{}, err
	}
	out := Rendered{
		Text:        EncodeText(r),
		SRT:         EncodeSRT(r),
		VTT:         EncodeVTT(r),
		JSON:        compact,
		VerboseJSON: verbose,
	}
	if r.HasWords() {
		words, err := EncodeWordsJSON(r)
		if err != nil {
			return Rendered{}, err
		}
		out.WordsJSON = words
	}
	return out, nil
}

// Get returns the rendering for f. ok is false for words when none exist.
func (r Rendered) Get(f Format) (string, bool) {
	switch f {
	case FormatText:
		return r.Text, true
	case FormatSRT:
		return r.SRT, true
	case FormatVTT:
		return r.VTT, true
	case FormatJSON:
		return r.JSON, true
	case FormatVerbose:
		return r.VerboseJSON, true
	case FormatWords:
		return r.WordsJSON, r.WordsJSON != ""
	default:
		return "", false
	}
}

// EncodeText returns the transcript text with surrounding whitespace removed.
func EncodeText(r Result) string {
	return strings.TrimSpace(r.Text)
}

// EncodeSRT renders numbered SubRip cues starting at 1.
func EncodeSRT(r Result) string {
	var sb strings.Builder
	for i, seg := range r.Segments {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(FormatSRTTimestamp(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatSRTTimestamp(seg.End))
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimSpace(seg.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// EncodeVTT renders a WebVTT document.
func EncodeVTT(r Result) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, seg := range r.Segments {
		sb.WriteString(FormatVTTTimestamp(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatVTTTimestamp(seg.End))
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimSpace(seg.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

type compactSegment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type compactTranscript struct {
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Text     string           `json:"text"`
	Segments []compactSegment `json:"segments"`
}

// EncodeJSON renders the compact JSON form: language, duration, text and
// segments without word timings.
func EncodeJSON(r Result) (string, error) {
	payload := compactTranscript{
		Language: r.Language,
		Duration: r.Duration,
		Text:     EncodeText(r),
		Segments: make([]compactSegment, 0, len(r.Segments)),
	}
	for _, seg := range r.Segments {
		payload.Segments = append(payload.Segments, compactSegment{
			ID:    seg.ID,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode json transcript: %w", err)
	}
	return string(data), nil
}

// EncodeVerboseJSON renders the full merged structure including words.
func EncodeVerboseJSON(r Result) (string, error) {
	if r.Segments == nil {
		r.Segments = []Segment{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode verbose transcript: %w", err)
	}
	return string(data), nil
}

// EncodeWordsJSON renders the word timings as a JSON array.
func EncodeWordsJSON(r Result) (string, error) {
	words := r.Words
	if words == nil {
		words = []Word{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("encode word timings: %w", err)
	}
	return string(data), nil
}
