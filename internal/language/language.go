package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto requests provider-side language detection.
const Auto = "auto"

// wordTags seeds the English-name lookup for the languages users most often
// type out in full.
var wordTags = []xlanguage.Tag{
	xlanguage.English, xlanguage.Spanish, xlanguage.French, xlanguage.German,
	xlanguage.Italian, xlanguage.Portuguese, xlanguage.Japanese, xlanguage.Korean,
	xlanguage.Chinese, xlanguage.Russian, xlanguage.Arabic, xlanguage.Hindi,
	xlanguage.Dutch, xlanguage.Polish, xlanguage.Swedish, xlanguage.Danish,
	xlanguage.Norwegian, xlanguage.Finnish, xlanguage.Turkish, xlanguage.Ukrainian,
	xlanguage.Greek, xlanguage.Czech, xlanguage.Hebrew, xlanguage.Indonesian,
	xlanguage.Vietnamese, xlanguage.Thai,
}

var byWord map[string]string

func init() {
	namer := display.English.Languages()
	byWord = make(map[string]string, len(wordTags))
	for _, tag := range wordTags {
		base, _ := tag.Base()
		byWord[strings.ToLower(namer.Name(tag))] = base.String()
	}
}

// Normalize resolves a requested language to "auto" or an ISO 639-1 code.
// Empty input means auto-detection.
func Normalize(code string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" || trimmed == Auto {
		return Auto, nil
	}
	if iso := ToISO2(trimmed); iso != "" {
		return iso, nil
	}
	return "", fmt.Errorf("unsupported language %q: want \"auto\" or an ISO 639-1 code", code)
}

// ToISO2 converts a tag, ISO 639-2 code or English word to ISO 639-1.
// Returns empty string when the language has no two-letter code or the input
// is not recognized.
func ToISO2(code string) string {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" || trimmed == Auto {
		return ""
	}
	if iso, ok := byWord[trimmed]; ok {
		return iso
	}
	tag, err := xlanguage.Parse(trimmed)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	iso := base.String()
	if len(iso) != 2 {
		return ""
	}
	return iso
}

// DisplayName returns the English name for a language code, "Auto-detect"
// for auto, or the uppercased input when it is not recognized.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	switch strings.ToLower(trimmed) {
	case "":
		return "Unknown"
	case Auto:
		return "Auto-detect"
	}
	tag, err := xlanguage.Parse(trimmed)
	if err != nil {
		return strings.ToUpper(trimmed)
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return strings.ToUpper(trimmed)
}
