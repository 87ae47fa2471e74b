// Package pairs associates screenshots with the recording files that cover
// them. A closed recording window [start, end] is matched against the
// recordings directory by modification time, and every screenshot captured
// inside the window is filed against that video in the pairs JSON index.
package pairs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"clipmark/internal/imagefile"
	"clipmark/internal/logging"
)

const pairsFile = "_pairs.json"

// Pairer resolves recording windows to videos and maintains the pairs index.
type Pairer struct {
	mu            sync.Mutex
	capturesDir   string
	recordingsDir string
	extensions    []string
	margin        time.Duration
	logger        *slog.Logger
}

// New builds a pairer. extensions are lowercase, dot-prefixed video
// extensions; margin widens the window on both sides when matching by mtime.
func New(capturesDir, recordingsDir string, extensions []string, margin time.Duration, logger *slog.Logger) *Pairer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pairer{
		capturesDir:   capturesDir,
		recordingsDir: recordingsDir,
		extensions:    extensions,
		margin:        margin,
		logger:        logging.WithComponent(logger, "pairer"),
	}
}

func (p *Pairer) indexPath() string {
	return filepath.Join(p.capturesDir, pairsFile)
}

// Load reads the pairs index. A missing or unparseable file is an empty map;
// non-string values are dropped.
func (p *Pairer) Load() (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

func (p *Pairer) loadLocked() (map[string]string, error) {
	data, err := os.ReadFile(p.indexPath())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pairs index: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		p.logger.Warn("pairs index unparseable, starting fresh")
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(raw))
	for name, v := range raw {
		if s, ok := v.(string); ok {
			out[name] = s
		}
	}
	return out, nil
}

func (p *Pairer) saveLocked(mapping map[string]string) error {
	encoded, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pairs index: %w", err)
	}
	if err := os.WriteFile(p.indexPath(), encoded, 0o644); err != nil {
		return fmt.Errorf("write pairs index: %w", err)
	}
	return nil
}

// FindRecordingFile picks the recording most likely produced for the window.
// Candidates are files in the recordings directory with a matching extension
// whose mtime falls inside [start-margin, end+margin]; the one with mtime
// closest to end wins, and ties go to the most recent file.
func (p *Pairer) FindRecordingFile(start, end time.Time) (string, bool) {
	if p.recordingsDir == "" {
		return "", false
	}
	entries, err := os.ReadDir(p.recordingsDir)
	if err != nil {
		p.logger.Debug("recordings directory unreadable", logging.Error(err))
		return "", false
	}

	lo := start.Add(-p.margin)
	hi := end.Add(p.margin)

	type candidate struct {
		path  string
		mtime time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() || !p.isRecording(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		mt := info.ModTime()
		if mt.Before(lo) || mt.After(hi) {
			continue
		}
		candidates = append(candidates, candidate{
			path:  filepath.Join(p.recordingsDir, entry.Name()),
			mtime: mt,
		})
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := absDuration(candidates[i].mtime.Sub(end))
		dj := absDuration(candidates[j].mtime.Sub(end))
		if di != dj {
			return di < dj
		}
		return candidates[i].mtime.After(candidates[j].mtime)
	})
	return candidates[0].path, true
}

func (p *Pairer) isRecording(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range p.extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// ImagesInRange lists screenshot file names whose timestamp falls inside
// [start, end], sorted by name. Filename-embedded timestamps win over mtime.
func (p *Pairer) ImagesInRange(start, end time.Time) []string {
	entries, err := os.ReadDir(p.capturesDir)
	if err != nil {
		p.logger.Debug("captures directory unreadable", logging.Error(err))
		return nil
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !imagefile.IsImage(entry.Name()) {
			continue
		}
		ts, ok := imagefile.ParseNameTime(entry.Name())
		if !ok {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			ts = info.ModTime()
		}
		if ts.Before(start) || ts.After(end) {
			continue
		}
		out = append(out, entry.Name())
	}
	sort.Strings(out)
	return out
}

// AssociateWindow resolves the window to a recording and files every
// screenshot inside it against that video. Returns the video path and the
// image names paired; ok is false when no recording or no images matched.
func (p *Pairer) AssociateWindow(start, end time.Time) (video string, images []string, ok bool, err error) {
	video, found := p.FindRecordingFile(start, end)
	if !found {
		p.logger.Info("no recording matched window",
			logging.Time("window_start", start),
			logging.Time("window_end", end))
		return "", nil, false, nil
	}
	images = p.ImagesInRange(start, end)
	if len(images) == 0 {
		p.logger.Info("no screenshots inside window",
			logging.String("video", video))
		return video, nil, false, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	mapping, err := p.loadLocked()
	if err != nil {
		return "", nil, false, err
	}
	for _, name := range images {
		mapping[name] = video
	}
	if err := p.saveLocked(mapping); err != nil {
		return "", nil, false, err
	}
	p.logger.Info("paired window with recording",
		logging.String("video", video),
		logging.Int("images", len(images)))
	return video, images, true, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
