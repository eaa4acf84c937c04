package vfsmnt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorkspaceCopiesAndOverlays(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "src", "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "out.md"), []byte("old\n"), 0o644))

	ws, err := CreateWorkspace(repo, []OverlayFile{
		{RelPath: "out.md", Bytes: []byte("generated\n")},
		{RelPath: "gen/new.md", Bytes: []byte("new\n")},
	}, Options{})
	require.NoError(t, err)
	defer ws.Remove()

	data, err := os.ReadFile(filepath.Join(ws.Path, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", string(data))

	// Overlay replaces the repo copy.
	data, err = os.ReadFile(filepath.Join(ws.Path, "out.md"))
	require.NoError(t, err)
	assert.Equal(t, "generated\n", string(data))

	data, err = os.ReadFile(filepath.Join(ws.Path, "gen", "new.md"))
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))

	// The source repo is untouched.
	data, err = os.ReadFile(filepath.Join(repo, "out.md"))
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(data))
}

func TestCreateWorkspaceDenyWrites(t *testing.T) {
	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "file.txt"), []byte("x\n"), 0o644))

	ws, err := CreateWorkspace(repo, nil, Options{DenyWrites: true})
	require.NoError(t, err)
	defer ws.Remove()

	info, err := os.Stat(filepath.Join(ws.Path, "file.txt"))
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o200)
}
