package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chimebot/chime/internal/audio"
	"github.com/chimebot/chime/internal/catalog"
	"github.com/chimebot/chime/internal/config"
)

func newTestCatalog(t *testing.T, files ...string) catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
	}

	cfg := &config.Config{Audio: config.AudioConfig{SoundsDir: dir}}
	c, err := catalog.NewDirCatalog(zap.NewNop(), cfg)
	require.NoError(t, err)
	return c
}

func TestLookupFindsSoundByBaseName(t *testing.T) {
	c := newTestCatalog(t, "airhorn.mp3", "fanfare.ogg", "notes.txt")

	s, err := c.Lookup("airhorn")
	require.NoError(t, err)
	assert.Equal(t, "airhorn", s.Name)
	assert.Equal(t, ".mp3", filepath.Ext(s.FilePath))
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	c := newTestCatalog(t, "AirHorn.mp3")

	s, err := c.Lookup("  AIRHORN ")
	require.NoError(t, err)
	assert.Equal(t, "airhorn", s.Name)
}

func TestLookupUnknownSound(t *testing.T) {
	c := newTestCatalog(t, "airhorn.mp3")

	_, err := c.Lookup("klaxon")
	assert.True(t, audio.IsKind(err, audio.KindSourceNotFound))
}

func TestListIgnoresNonAudioFiles(t *testing.T) {
	c := newTestCatalog(t, "a.mp3", "b.wav", "readme.md", "cover.png")

	sounds := c.List()
	require.Len(t, sounds, 2)
	assert.Equal(t, "a", sounds[0].Name)
	assert.Equal(t, "b", sounds[1].Name)
}

func TestFuzzyMatchOrdersByDistance(t *testing.T) {
	c := newTestCatalog(t, "airhorn.mp3", "airhorse.mp3", "fanfare.mp3")

	matches := c.FuzzyMatch("airhorn", 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "airhorn", matches[0].Name)
	assert.Zero(t, matches[0].Distance)
	assert.Equal(t, "airhorse", matches[1].Name)
}

func TestRefreshPicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{Audio: config.AudioConfig{SoundsDir: dir}}
	c, err := catalog.NewDirCatalog(zap.NewNop(), cfg)
	require.NoError(t, err)
	assert.Empty(t, c.List())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.mp3"), []byte("x"), 0o644))
	require.NoError(t, c.Refresh())

	_, err = c.Lookup("new")
	assert.NoError(t, err)
}
