// Package texts loads the bot's static reply texts from a directory of
// .txt files once at startup. The store is read-only afterwards and lookup
// never fails: a missing key yields a visible placeholder instead.
package texts

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Store holds the loaded texts keyed by file name without extension.
type Store struct {
	texts map[string]string
}

// Load reads every *.txt file under dir. Files that cannot be read are
// skipped with a log line; an unreadable directory yields an empty store
// rather than an error, so the bot still answers with placeholders.
func Load(dir string, log zerolog.Logger) *Store {
	s := &Store{texts: make(map[string]string)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("texts directory unreadable, using placeholders")
		return s
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("skipping unreadable text asset")
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".txt")
		s.texts[key] = strings.TrimSpace(string(data))
	}

	log.Info().Int("count", len(s.texts)).Str("dir", dir).Msg("reply texts loaded")
	return s
}

// Get returns the text for key, or a "text not found" placeholder.
func (s *Store) Get(key string) string {
	if t, ok := s.texts[key]; ok {
		return t
	}
	return "text not found: " + key
}
