// Package subtitle renders scene dialog as SubRip cues.
package subtitle

import (
	"fmt"
	"strings"
	"time"

	"studio/internal/domain"
)

// Cue is one subtitle entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Cues lays scenes end to end in order and emits one cue per scene that has
// dialog. Silent scenes still advance the clock.
func Cues(scenes []domain.Scene) []Cue {
	var (
		cues   []Cue
		offset time.Duration
	)
	for _, s := range scenes {
		length := time.Duration(max(s.Duration, 0)) * time.Second
		text := strings.TrimSpace(s.Dialog)
		if text != "" && length > 0 {
			cues = append(cues, Cue{
				Index: len(cues) + 1,
				Start: offset,
				End:   offset + length,
				Text:  text,
			})
		}
		offset += length
	}
	return cues
}

// SRT formats scenes as a SubRip document.
func SRT(scenes []domain.Scene) string {
	sb := &strings.Builder{}
	for i, c := range Cues(scenes) {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(sb, "%d\n%s --> %s\n%s\n", c.Index, timestamp(c.Start), timestamp(c.End), c.Text)
	}
	return sb.String()
}

func timestamp(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
