package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverRepoRootFindsAgentsDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".agents"), 0o755))
	nested := filepath.Join(root, "packages", "api")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := DiscoverRepoRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDiscoverRepoRootFallsBackToGit(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := DiscoverRepoRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestRepoRelPath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"simple", "out.md", "out.md", false},
		{"nested", "a/b/c.md", "a/b/c.md", false},
		{"backslashes normalized", `a\b\c.md`, "a/b/c.md", false},
		{"dot segments collapse", "a/./b/../c.md", "a/c.md", false},
		{"escape rejected", "../outside.md", "", true},
		{"deep escape rejected", "a/../../outside.md", "", true},
		{"absolute inside", filepath.Join(root, "gen", "x.md"), "gen/x.md", false},
		{"dot is empty", ".", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RepoRelPath(root, tt.in)
			if tt.wantErr {
				require.Error(t, err)
				var escErr *PathEscapesRepoError
				assert.ErrorAs(t, err, &escErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestRepoRelPathRejectsAbsoluteOutside(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	_, err := RepoRelPath(root, filepath.Join(other, "file.md"))
	require.Error(t, err)
}

func TestReadStringNormalizesCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\r\nb\r\nc\n"), 0o644))

	got, err := ReadString(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", got)
}

func TestAtomicWriteCreatesParents(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "deep", "nested", "out.md")

	require.NoError(t, AtomicWrite(dest, []byte("hello\n")))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	// Overwrite in place.
	require.NoError(t, AtomicWrite(dest, []byte("second\n")))
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWalkFilesSortedAndRelative(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"b/two.md", "a/one.md", "top.md"} {
		require.NoError(t, AtomicWrite(filepath.Join(dir, filepath.FromSlash(p)), []byte("x")))
	}

	got, err := WalkFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.md", "b/two.md", "top.md"}, got)
}

func TestEnsureTrailingNewline(t *testing.T) {
	assert.Equal(t, "x\n", EnsureTrailingNewline("x"))
	assert.Equal(t, "x\n", EnsureTrailingNewline("x\n"))
	assert.Equal(t, "\n", EnsureTrailingNewline(""))
}
