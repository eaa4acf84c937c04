// Package vfsmnt assembles a copy-workspace: a temporary directory holding
// a full copy of the repository with generated outputs overlaid. External
// executors run against the workspace instead of the real tree.
package vfsmnt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
)

var log = logger.New("vfsmnt")

const tempPrefix = "agents-vfsmnt-"

// staleTTL is how long an abandoned workspace may linger before cleanup.
const staleTTL = 24 * time.Hour

// OverlayFile is one generated file to place over the repository copy.
type OverlayFile struct {
	RelPath string
	Bytes   []byte
}

// Options controls workspace assembly.
type Options struct {
	DenyWrites bool
	Verbose    bool
}

// Workspace is a created copy-workspace.
type Workspace struct {
	Path string
}

// CreateWorkspace copies the repository into a fresh temp directory and
// overlays the outputs. Stale workspaces from earlier runs are removed
// first.
func CreateWorkspace(repoRoot string, overlays []OverlayFile, opts Options) (*Workspace, error) {
	cleanupStaleWorkspaces(opts.Verbose)

	dir, err := os.MkdirTemp("", tempPrefix)
	if err != nil {
		return nil, fmt.Errorf("creating workspace temp dir: %w", err)
	}

	if err := copyTree(repoRoot, dir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	for _, overlay := range overlays {
		dest := filepath.Join(dir, filepath.FromSlash(overlay.RelPath))
		if err := fsutil.AtomicWrite(dest, overlay.Bytes); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}

	if opts.DenyWrites {
		makeReadonly(dir)
	}

	log.Printf("created workspace %s (%d overlays)", dir, len(overlays))
	return &Workspace{Path: dir}, nil
}

// Remove deletes the workspace.
func (w *Workspace) Remove() error {
	makeWritable(w.Path)
	return os.RemoveAll(w.Path)
}

func cleanupStaleWorkspaces(verbose bool) {
	root := os.TempDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		return
	}
	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > staleTTL {
			path := filepath.Join(root, entry.Name())
			makeWritable(path)
			if err := os.RemoveAll(path); err == nil && verbose {
				fmt.Fprintf(os.Stderr, "vfsmnt: removed stale workspace %s\n", entry.Name())
			}
		}
	}
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		dest := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			return os.MkdirAll(dest, 0o755)
		case d.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", path, err)
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return err
			}
			return os.Symlink(target, dest)
		case d.Type().IsRegular():
			return copyFile(path, dest)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}

func makeReadonly(root string) {
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		os.Chmod(path, info.Mode().Perm()&0o555)
		return nil
	})
}

func makeWritable(root string) {
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		os.Chmod(path, info.Mode().Perm()|0o700)
		return nil
	})
}
