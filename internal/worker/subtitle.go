package worker

import (
	"fmt"
	"sort"
	"strings"

	"ugcfactory/internal/domain"
)

// CaptionsToSRT renders timed caption lines as SubRip text. Lines are
// ordered by start time; each line ends 0.1s before the next one starts,
// the last line runs 2.5s, and a line squeezed to zero length gets 0.5s.
func CaptionsToSRT(captions []domain.Caption) string {
	if len(captions) == 0 {
		return ""
	}

	sorted := make([]domain.Caption, len(captions))
	copy(sorted, captions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T < sorted[j].T })

	var b strings.Builder
	for i, c := range sorted {
		start := c.T
		end := start + 2.5
		if i+1 < len(sorted) {
			end = sorted[i+1].T - 0.1
		}
		if end <= start {
			end = start + 0.5
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(start), srtTimestamp(end), c.Text)
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	ms := int((seconds - float64(whole)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", whole/3600, (whole/60)%60, whole%60, ms)
}
