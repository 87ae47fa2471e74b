package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// Tags loads the per-image tag map. A missing or unreadable file is an empty
// map; values that are not string lists are dropped.
func (l *Ledger) Tags() (map[string][]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadTagsLocked()
}

func (l *Ledger) loadTagsLocked() (map[string][]string, error) {
	data, err := os.ReadFile(l.tagsPath())
	if os.IsNotExist(err) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		l.logger.Warn("tags file unparseable, starting fresh")
		return map[string][]string{}, nil
	}
	out := make(map[string][]string, len(raw))
	for name, v := range raw {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		var tags []string
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		out[name] = tags
	}
	return out, nil
}

// AddTags merges the given tags into the image's entry, skipping duplicates,
// and rewrites the file only when something changed.
func (l *Ledger) AddTags(imageName string, tags ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.loadTagsLocked()
	if err != nil {
		return err
	}

	existing := data[imageName]
	changed := false
	for _, tag := range tags {
		if tag == "" || slices.Contains(existing, tag) {
			continue
		}
		existing = append(existing, tag)
		changed = true
	}
	if !changed {
		return nil
	}
	data[imageName] = existing

	return l.writeTagsLocked(data)
}

func (l *Ledger) writeTagsLocked(data map[string][]string) error {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	if err := os.WriteFile(l.tagsPath(), encoded, 0o644); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	return nil
}
