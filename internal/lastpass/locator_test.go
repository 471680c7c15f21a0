package lastpass

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocator(cfg LocatorConfig, existing ...string) *Locator {
	l := NewLocator(cfg)
	set := make(map[string]bool, len(existing))
	for _, p := range existing {
		set[p] = true
	}
	l.exists = func(p string) bool { return set[p] }
	l.lookPath = func(string) (string, error) { return "", errors.New("not in PATH") }
	return l
}

func TestLocator_ProbesCandidatesInOrder(t *testing.T) {
	l := newTestLocator(LocatorConfig{}, "/opt/homebrew/bin/lpass")

	path, err := l.Path()
	require.NoError(t, err)
	assert.Equal(t, "/opt/homebrew/bin/lpass", path)

	usable, known := l.Usable()
	assert.True(t, usable)
	assert.True(t, known)
}

func TestLocator_ConfiguredPathWins(t *testing.T) {
	l := newTestLocator(LocatorConfig{Path: "/custom/lpass"}, "/custom/lpass", "/opt/local/bin/lpass")

	path, err := l.Path()
	require.NoError(t, err)
	assert.Equal(t, "/custom/lpass", path)
}

func TestLocator_SearchPATH(t *testing.T) {
	l := newTestLocator(LocatorConfig{SearchPATH: true})
	l.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }

	path, err := l.Path()
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/lpass", path)
}

func TestLocator_FindFallback(t *testing.T) {
	asked := 0
	l := newTestLocator(LocatorConfig{Find: func() (string, bool) {
		asked++
		return "/home/me/bin/lpass", true
	}}, "/home/me/bin/lpass")

	path, err := l.Path()
	require.NoError(t, err)
	assert.Equal(t, "/home/me/bin/lpass", path)

	_, err = l.Path()
	require.NoError(t, err)
	assert.Equal(t, 1, asked, "a resolved path is cached")
}

func TestLocator_NotFoundIsUnusable(t *testing.T) {
	l := newTestLocator(LocatorConfig{})

	_, err := l.Path()
	assert.ErrorIs(t, err, KindUnusableCLI)

	usable, known := l.Usable()
	assert.False(t, usable)
	assert.True(t, known)
}

func TestLocator_MarkUnusableAndReset(t *testing.T) {
	l := newTestLocator(LocatorConfig{}, "/opt/local/bin/lpass")
	_, err := l.Path()
	require.NoError(t, err)

	l.MarkUnusable()
	_, err = l.Path()
	assert.ErrorIs(t, err, KindUnusableCLI)

	l.ResetUsability()
	_, known := l.Usable()
	assert.False(t, known)

	path, err := l.Path()
	require.NoError(t, err)
	assert.Equal(t, "/opt/local/bin/lpass", path)
}

func TestLocator_ResetWithoutFailureIsNoop(t *testing.T) {
	l := newTestLocator(LocatorConfig{}, "/opt/local/bin/lpass")
	before, err := l.Path()
	require.NoError(t, err)

	l.ResetUsability()
	l.ResetUsability()

	usable, known := l.Usable()
	assert.True(t, usable)
	assert.True(t, known)
	after, err := l.Path()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	fresh := newTestLocator(LocatorConfig{}, "/opt/local/bin/lpass")
	fresh.ResetUsability()
	_, known = fresh.Usable()
	assert.False(t, known)
}

func TestIsExecutable(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "exe")
	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o644))

	assert.True(t, isExecutable(exe))
	assert.False(t, isExecutable(plain))
	assert.False(t, isExecutable(dir))
	assert.False(t, isExecutable(filepath.Join(dir, "missing")))
}
