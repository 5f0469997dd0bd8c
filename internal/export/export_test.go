package export

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"studio/internal/domain"
)

func TestArchive(t *testing.T) {
	m := Manifest{
		Project:    domain.Project{ID: "p1", Name: "Night Shift"},
		Scenes:     []domain.Scene{{ID: "s1", Duration: 5, Dialog: "Go."}},
		TotalCost:  1.25,
		ExportedAt: time.Date(2025, 1, 2, 3, 4, 6, 0, time.UTC),
	}
	data, err := Archive(m)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if len(names) != 2 || names[0] != "project.json" || names[1] != "subtitles.srt" {
		t.Fatalf("unexpected entries %v", names)
	}

	m.Scenes[0].Dialog = ""
	data, err = Archive(m)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	zr, _ = zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if len(zr.File) != 1 {
		t.Fatalf("expected only manifest without dialog, got %d entries", len(zr.File))
	}
}

func TestFilename(t *testing.T) {
	cases := map[string]domain.Project{
		"night-shift.zip": {ID: "p1", Name: "Night Shift!"},
		"p2.zip":          {ID: "p2", Name: "  "},
		"a-b-c.zip":       {ID: "p3", Name: "A_b-C"},
	}
	for want, p := range cases {
		if got := Filename(p); got != want {
			t.Errorf("Filename(%q) = %s, want %s", p.Name, got, want)
		}
	}
}
