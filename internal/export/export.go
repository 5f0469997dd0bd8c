// Package export packages a project for download.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/subtitle"
	"studio/pkg/zip"
)

// Manifest is the project.json document inside an export archive.
type Manifest struct {
	Project    domain.Project     `json:"project"`
	Characters []domain.Character `json:"characters"`
	Scenes     []domain.Scene     `json:"scenes"`
	TotalCost  float64            `json:"total_cost"`
	ExportedAt time.Time          `json:"exported_at"`
}

// Filename is the suggested download name for a project archive.
func Filename(p domain.Project) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '_':
			return '-'
		}
		return -1
	}, strings.TrimSpace(p.Name))
	if name == "" {
		name = p.ID
	}
	return name + ".zip"
}

// Archive builds a zip holding project.json and, when any scene has dialog,
// subtitles.srt.
func Archive(m Manifest) ([]byte, error) {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: encode manifest: %w", err)
	}
	assets := []zip.Asset{{Filename: "project.json", MIME: "application/json", Data: raw}}
	if srt := subtitle.SRT(m.Scenes); srt != "" {
		assets = append(assets, zip.Asset{Filename: "subtitles.srt", MIME: "application/x-subrip", Data: []byte(srt)})
	}
	return zip.ArchiveAssets(assets, m.ExportedAt)
}
