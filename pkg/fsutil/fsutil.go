// Package fsutil provides repository-rooted filesystem primitives: root
// discovery, normalized repo-relative paths that provably never escape the
// root, CRLF-normalizing reads, atomic writes, and deterministic walks.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/constants"
	"github.com/agentsfolder/agents-cli/pkg/logger"
)

var log = logger.New("fsutil")

// PathEscapesRepoError reports a path that would resolve outside the repo root.
type PathEscapesRepoError struct {
	Root string
	Path string
}

func (e *PathEscapesRepoError) Error() string {
	return fmt.Sprintf("path escapes repo root (root=%s, path=%s)", e.Root, e.Path)
}

// RepoPath is a normalized, forward-slash, repo-relative path. It is only
// constructed through RepoRelPath, which guarantees it cannot escape the
// repository root.
type RepoPath struct {
	rel string
}

// String returns the forward-slash repo-relative form.
func (p RepoPath) String() string { return p.rel }

// IsZero reports whether the path was never initialized.
func (p RepoPath) IsZero() bool { return p.rel == "" }

// Abs joins the path onto the given repository root.
func (p RepoPath) Abs(repoRoot string) string {
	return filepath.Join(repoRoot, filepath.FromSlash(p.rel))
}

// AgentsDir returns the .agents directory under the repository root.
func AgentsDir(repoRoot string) string {
	return filepath.Join(repoRoot, constants.AgentsDirName)
}

// ExplainDir returns the explain record directory under the repository root.
func ExplainDir(repoRoot string) string {
	return filepath.Join(AgentsDir(repoRoot), "state", "explain")
}

// DiscoverRepoRoot walks upward from start looking for a directory that
// contains .agents/. A .git directory is remembered as a fallback; when
// neither is found, start itself is returned.
func DiscoverRepoRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving start directory %s: %w", start, err)
	}

	var bestGit string
	cur := abs
	for {
		if info, err := os.Stat(AgentsDir(cur)); err == nil && info.IsDir() {
			log.Printf("repo root via .agents: %s", cur)
			return cur, nil
		}
		if bestGit == "" {
			if info, err := os.Stat(filepath.Join(cur, ".git")); err == nil && info.IsDir() {
				bestGit = cur
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	if bestGit != "" {
		log.Printf("repo root via .git: %s", bestGit)
		return bestGit, nil
	}
	return abs, nil
}

// RepoRelPath normalizes p (absolute or relative) to a RepoPath under
// repoRoot. Backslashes are treated as separators. The target does not need
// to exist. Paths that resolve outside the root are rejected.
func RepoRelPath(repoRoot, p string) (RepoPath, error) {
	cleaned := filepath.Clean(filepath.FromSlash(strings.ReplaceAll(p, `\`, "/")))

	if filepath.IsAbs(cleaned) {
		rel, err := filepath.Rel(repoRoot, cleaned)
		if err != nil {
			return RepoPath{}, &PathEscapesRepoError{Root: repoRoot, Path: p}
		}
		cleaned = rel
	}

	slashed := filepath.ToSlash(cleaned)
	if slashed == ".." || strings.HasPrefix(slashed, "../") {
		return RepoPath{}, &PathEscapesRepoError{Root: repoRoot, Path: p}
	}
	if slashed == "." {
		slashed = ""
	}
	return RepoPath{rel: slashed}, nil
}

// ReadString reads a text file and normalizes CRLF line endings to LF.
func ReadString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

// EnsureTrailingNewline appends a final newline when missing.
func EnsureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// AtomicWrite writes bytes to path via a temp file in the same directory
// followed by a rename, creating parent directories as needed. A reader
// never observes a partially written file.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".agents-write-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// WalkFiles returns every regular file under root as a sorted list of
// forward-slash paths relative to root. Symlinks are not followed.
func WalkFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}
