package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store reads and writes the feed document at a fixed path.
type Store struct {
	path   string
	logger *zerolog.Logger
}

func NewStore(path string, logger *zerolog.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// LoadSeenIDs returns the post IDs already published in the feed document.
// A missing or unreadable document yields nothing, so the first run and a
// corrupted file both start from a clean slate.
func (s *Store) LoadSeenIDs() []string {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Could not read existing feed document")
		}

		return nil
	}

	var doc struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}

	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Could not parse existing feed document")
		return nil
	}

	ids := make([]string, 0, len(doc.Results))
	for _, result := range doc.Results {
		if result.ID != "" {
			ids = append(ids, result.ID)
		}
	}

	return ids
}

// write marshals the document with two-space indentation and replaces the
// file through a rename so a crash cannot leave a truncated feed behind.
func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feed document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp feed file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("write feed document: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp feed file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace feed document: %w", err)
	}

	return nil
}
