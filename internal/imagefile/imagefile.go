// Package imagefile holds shared helpers for the screenshot files clipmark
// watches: extension filtering, filename-embedded timestamps, and the
// write-completion debounce used before a file is admitted for pairing.
package imagefile

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// OBS-style names lead with "2023-04-05_19-22-10" (or a space separator);
// legacy captures used "20230405_192210".
var (
	nameTimeOBS    = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ _](\d{2}-\d{2}-\d{2})`)
	nameTimeLegacy = regexp.MustCompile(`^(\d{8}_\d{6})`)
)

// IsImage reports whether name carries a recognized screenshot extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := imageExtensions[ext]
	return ok
}

// ParseNameTime extracts the timestamp embedded in a screenshot file name.
// Returns false when the name matches neither supported pattern.
func ParseNameTime(name string) (time.Time, bool) {
	if m := nameTimeOBS.FindStringSubmatch(name); m != nil {
		if t, err := time.ParseInLocation("2006-01-02_15-04-05", m[1]+"_"+m[2], time.Local); err == nil {
			return t, true
		}
	}
	if m := nameTimeLegacy.FindStringSubmatch(name); m != nil {
		if t, err := time.ParseInLocation("20060102_150405", m[1], time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Timestamp resolves a screenshot's source time: filename pattern first,
// file modification time as fallback.
func Timestamp(path string) (time.Time, error) {
	if t, ok := ParseNameTime(filepath.Base(path)); ok {
		return t, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// SizeSettled checks that path's size is unchanged across the debounce wait,
// confirming the producer finished writing. Errors report an unsettled file.
func SizeSettled(path string, wait time.Duration) bool {
	first, err := os.Stat(path)
	if err != nil {
		return false
	}
	time.Sleep(wait)
	second, err := os.Stat(path)
	if err != nil {
		return false
	}
	return first.Size() == second.Size()
}
