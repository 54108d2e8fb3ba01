package transcript

import "fmt"

// FormatSRTTimestamp renders seconds as HH:MM:SS,mmm. Negative input clamps to zero.
func FormatSRTTimestamp(seconds float64) string {
	return formatTimestamp(seconds, ',')
}

// FormatVTTTimestamp renders seconds as HH:MM:SS.mmm. Negative input clamps to zero.
func FormatVTTTimestamp(seconds float64) string {
	return formatTimestamp(seconds, '.')
}

func formatTimestamp(seconds float64, sep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, millis)
}
