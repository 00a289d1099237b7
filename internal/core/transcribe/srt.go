package transcribe

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Segment is one timed span of recognized speech. Times are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// FormatSRT renders segments as SubRip captions in the order given. Simple
// mode drops the millisecond part of each timestamp.
func FormatSRT(segments []Segment, simple bool) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(formatTimestamp(seg.Start, simple))
		b.WriteString(" --> ")
		b.WriteString(formatTimestamp(seg.End, simple))
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(seg.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatTimestamp(seconds float64, simple bool) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if simple {
		total := int64(seconds)
		return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
	}
	ms := int64(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms%3_600_000/60_000, ms%60_000/1000, ms%1000)
}
