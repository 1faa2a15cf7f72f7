// Package catalog maintains the named sound library backed by a directory
// of audio files.
package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/audio"
	"github.com/chimebot/chime/internal/config"
)

// Sound is one playable catalog entry.
type Sound struct {
	Name     string
	FilePath string
}

// Match is a fuzzy-lookup candidate with its edit distance from the query.
type Match struct {
	Name     string
	Distance int
}

// Catalog resolves sound names to files.
type Catalog interface {
	// Lookup returns the sound registered under name (case-insensitive).
	Lookup(name string) (Sound, error)
	// FuzzyMatch returns up to limit catalog names ordered by edit
	// distance to needle, closest first.
	FuzzyMatch(needle string, limit int) []Match
	// List returns every sound, sorted by name.
	List() []Sound
	// Refresh rescans the backing directory.
	Refresh() error
}

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".opus": true,
	".m4a":  true,
	".flac": true,
	".webm": true,
}

type dirCatalog struct {
	logger *zap.Logger
	dir    string

	mu     sync.RWMutex
	sounds map[string]Sound
}

// NewDirCatalog scans the configured sounds directory and serves lookups
// from the scan result. A missing directory is created empty rather than
// treated as an error.
func NewDirCatalog(logger *zap.Logger, cfg *config.Config) (Catalog, error) {
	c := &dirCatalog{
		logger: logger,
		dir:    cfg.Audio.SoundsDir,
		sounds: make(map[string]Sound),
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, err
	}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *dirCatalog) Refresh() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	sounds := make(map[string]Sound, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !audioExtensions[ext] {
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		sounds[name] = Sound{
			Name:     name,
			FilePath: filepath.Join(c.dir, e.Name()),
		}
	}

	c.mu.Lock()
	c.sounds = sounds
	c.mu.Unlock()

	c.logger.Info("Scanned sound catalog",
		zap.String("dir", c.dir),
		zap.Int("sounds", len(sounds)))
	return nil
}

func (c *dirCatalog) Lookup(name string) (Sound, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sounds[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Sound{}, &audio.Error{
			Kind:    audio.KindSourceNotFound,
			Locator: name,
			Detail:  "no such sound in catalog",
		}
	}
	return s, nil
}

func (c *dirCatalog) FuzzyMatch(needle string, limit int) []Match {
	needle = strings.ToLower(strings.TrimSpace(needle))

	c.mu.RLock()
	matches := make([]Match, 0, len(c.sounds))
	for name := range c.sounds {
		matches = append(matches, Match{
			Name:     name,
			Distance: levenshtein.ComputeDistance(needle, name),
		})
	}
	c.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Name < matches[j].Name
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func (c *dirCatalog) List() []Sound {
	c.mu.RLock()
	sounds := make([]Sound, 0, len(c.sounds))
	for _, s := range c.sounds {
		sounds = append(sounds, s)
	}
	c.mu.RUnlock()

	sort.Slice(sounds, func(i, j int) bool { return sounds[i].Name < sounds[j].Name })
	return sounds
}
