package transcript_test

import (
	"encoding/json"
	"testing"

	"scribe/internal/transcript"
)

func sampleResult() transcript.Result {
	return transcript.Result{
		Language: "en",
		Duration: 3725.5,
		Text:     "  Hello there. General Kenobi.  ",
		Segments: []transcript.Segment{
			{ID: 0, Start: 0, End: 1.5, Text: " Hello there. "},
			{ID: 1, Start: 3723.25, End: 3725.5, Text: "General Kenobi."},
		},
	}
}

func TestEncodeSRT(t *testing.T) {
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello there.\n\n" +
		"2\n01:02:03,250 --> 01:02:05,500\nGeneral Kenobi.\n\n"
	if got := transcript.EncodeSRT(sampleResult()); got != want {
		t.Fatalf("unexpected SRT:\n%q\nwant\n%q", got, want)
	}
}

func TestEncodeVTT(t *testing.T) {
	want := "WEBVTT\n\n" +
		"00:00:00.000 --> 00:00:01.500\nHello there.\n\n" +
		"01:02:03.250 --> 01:02:05.500\nGeneral Kenobi.\n\n"
	if got := transcript.EncodeVTT(sampleResult()); got != want {
		t.Fatalf("unexpected VTT:\n%q\nwant\n%q", got, want)
	}
	if got := transcript.EncodeVTT(transcript.Result{}); got != "WEBVTT\n\n" {
		t.Fatalf("unexpected empty VTT %q", got)
	}
}

func TestEncodeTextTrims(t *testing.T) {
	if got := transcript.EncodeText(sampleResult()); got != "Hello there. General Kenobi." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestEncodeJSONCompact(t *testing.T) {
	got, err := transcript.EncodeJSON(sampleResult())
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	want := `{"language":"en","duration":3725.5,"text":"Hello there. General Kenobi.","segments":[{"id":0,"start":0,"end":1.5,"text":"Hello there."},{"id":1,"start":3723.25,"end":3725.5,"text":"General Kenobi."}]}`
	if got != want {
		t.Fatalf("unexpected JSON:\n%s\nwant\n%s", got, want)
	}
	empty, err := transcript.EncodeJSON(transcript.Result{})
	if err != nil {
		t.Fatalf("EncodeJSON empty: %v", err)
	}
	if empty != `{"language":"","duration":0,"text":"","segments":[]}` {
		t.Fatalf("unexpected empty JSON %s", empty)
	}
}

func TestEncodeVerboseJSONRoundTrips(t *testing.T) {
	res := sampleResult()
	res.Words = []transcript.Word{{Word: "Hello", Start: 0, End: 0.4}}
	verbose, err := transcript.EncodeVerboseJSON(res)
	if err != nil {
		t.Fatalf("EncodeVerboseJSON: %v", err)
	}
	var decoded transcript.Result
	if err := json.Unmarshal([]byte(verbose), &decoded); err != nil {
		t.Fatalf("decode verbose: %v", err)
	}
	if len(decoded.Words) != 1 || len(decoded.Segments) != 2 || decoded.Duration != res.Duration {
		t.Fatalf("verbose JSON lost data: %+v", decoded)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	res := sampleResult()
	res.Words = []transcript.Word{{Word: "Hello", Start: 0, End: 0.4}}
	first, err := transcript.Render(res)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := transcript.Render(res)
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if again != first {
			t.Fatalf("render %d differs from first", i)
		}
	}
	if first.WordsJSON != `[{"word":"Hello","start":0,"end":0.4}]` {
		t.Fatalf("unexpected words JSON %s", first.WordsJSON)
	}
	if _, ok := first.Get(transcript.FormatWords); !ok {
		t.Fatal("expected words format to be available")
	}

	withoutWords, err := transcript.Render(sampleResult())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if withoutWords.WordsJSON != "" {
		t.Fatalf("expected no words JSON, got %s", withoutWords.WordsJSON)
	}
	if _, ok := withoutWords.Get(transcript.FormatWords); ok {
		t.Fatal("expected words format to be unavailable")
	}
}

func TestTimestampFormatting(t *testing.T) {
	tests := []struct {
		seconds float64
		srt     string
		vtt     string
	}{
		{0, "00:00:00,000", "00:00:00.000"},
		{-3, "00:00:00,000", "00:00:00.000"},
		{1.25, "00:00:01,250", "00:00:01.250"},
		{59.9996, "00:01:00,000", "00:01:00.000"},
		{36000.123, "10:00:00,123", "10:00:00.123"},
	}
	for _, tc := range tests {
		if got := transcript.FormatSRTTimestamp(tc.seconds); got != tc.srt {
			t.Errorf("FormatSRTTimestamp(%v) = %q, want %q", tc.seconds, got, tc.srt)
		}
		if got := transcript.FormatVTTTimestamp(tc.seconds); got != tc.vtt {
			t.Errorf("FormatVTTTimestamp(%v) = %q, want %q", tc.seconds, got, tc.vtt)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]transcript.Format{
		"text": transcript.FormatText, "TXT": transcript.FormatText, "srt": transcript.FormatSRT,
		"webvtt": transcript.FormatVTT, "json": transcript.FormatJSON, "verbose_json": transcript.FormatVerbose,
		"words": transcript.FormatWords,
	} {
		got, err := transcript.ParseFormat(input)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := transcript.ParseFormat("docx"); err == nil {
		t.Error("expected unsupported format error")
	}
}
