package imagefile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipmark/internal/imagefile"
)

func TestIsImage(t *testing.T) {
	cases := map[string]bool{
		"2023-04-05_19-22-10.png": true,
		"shot.JPG":                true,
		"shot.jpeg":               true,
		"shot.webp":               true,
		"shot.mkv":                false,
		"_results.csv":            false,
		"noext":                   false,
	}
	for name, want := range cases {
		if got := imagefile.IsImage(name); got != want {
			t.Errorf("IsImage(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseNameTime(t *testing.T) {
	cases := []struct {
		name string
		want time.Time
		ok   bool
	}{
		{"2023-04-05_19-22-10.png", time.Date(2023, 4, 5, 19, 22, 10, 0, time.Local), true},
		{"2023-04-05 19-22-10.png", time.Date(2023, 4, 5, 19, 22, 10, 0, time.Local), true},
		{"20230405_192210.png", time.Date(2023, 4, 5, 19, 22, 10, 0, time.Local), true},
		{"2023-04-05_19-22-10 extra.png", time.Date(2023, 4, 5, 19, 22, 10, 0, time.Local), true},
		{"screenshot.png", time.Time{}, false},
		{"2023-13-45_99-99-99.png", time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := imagefile.ParseNameTime(tc.name)
		if ok != tc.ok {
			t.Errorf("ParseNameTime(%q) ok = %v, want %v", tc.name, ok, tc.ok)
			continue
		}
		if ok && !got.Equal(tc.want) {
			t.Errorf("ParseNameTime(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTimestampFallsBackToModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unnamed.png")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	mtime := time.Date(2023, 4, 5, 12, 0, 0, 0, time.Local)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	got, err := imagefile.Timestamp(path)
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	if !got.Equal(mtime) {
		t.Fatalf("Timestamp = %v, want %v", got, mtime)
	}
}

func TestTimestampPrefersNamePattern(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2023-04-05_19-22-10.png")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	got, err := imagefile.Timestamp(path)
	if err != nil {
		t.Fatalf("Timestamp: %v", err)
	}
	want := time.Date(2023, 4, 5, 19, 22, 10, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("Timestamp = %v, want %v", got, want)
	}
}

func TestSizeSettled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, []byte("complete"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if !imagefile.SizeSettled(path, time.Millisecond) {
		t.Fatal("expected settled file")
	}
	if imagefile.SizeSettled(filepath.Join(dir, "missing.png"), time.Millisecond) {
		t.Fatal("missing file must not report settled")
	}
}
