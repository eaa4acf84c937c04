// Package testutil runs adapter golden fixtures: each fixture directory
// holds a repo/ tree, an expect/ tree of golden outputs per agent (and
// optionally per matrix case), and an optional matrix.yaml declaring
// resolution overrides per case.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/driftx"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
)

var log = logger.New("testutil:fixtures")

// FileMismatch is one difference between expected and actual trees.
type FileMismatch struct {
	Path string
	Kind string // "missing", "unexpected", "content"
	Diff string
}

// FixtureFailure collects the mismatches of one (fixture, agent, case).
type FixtureFailure struct {
	Fixture    string
	AgentID    string
	Case       string
	ActualDir  string
	Mismatches []FileMismatch
}

// RenderHuman formats the failure for terminal output.
func (f *FixtureFailure) RenderHuman() string {
	var out strings.Builder
	fmt.Fprintf(&out, "fixture %s (agent %s, case %s): %d mismatches\n",
		f.Fixture, f.AgentID, f.Case, len(f.Mismatches))
	for _, m := range f.Mismatches {
		fmt.Fprintf(&out, "- %s: %s\n", m.Kind, m.Path)
		if m.Diff != "" {
			out.WriteString(m.Diff)
			if !strings.HasSuffix(m.Diff, "\n") {
				out.WriteString("\n")
			}
		}
	}
	fmt.Fprintf(&out, "actual outputs: %s\n", f.ActualDir)
	return out.String()
}

// Report summarizes one fixture run.
type Report struct {
	Passed   int
	Failed   int
	Failures []FixtureFailure
}

// MatrixCase is one resolution override set from matrix.yaml.
type MatrixCase struct {
	Name    string             `yaml:"name"`
	Mode    string             `yaml:"mode,omitempty"`
	Profile string             `yaml:"profile,omitempty"`
	Backend *model.BackendKind `yaml:"backend,omitempty"`
}

type fixtureMatrix struct {
	Cases []MatrixCase `yaml:"cases"`
}

// RunFixture executes one fixture directory: plan and render every enabled
// adapter for every matrix case, then compare against the golden tree.
// Failed cases keep their actual output directory for inspection.
func RunFixture(fixtureRoot string, agentFilter string) (*Report, error) {
	repoRoot := filepath.Join(fixtureRoot, "repo")
	expectRoot := filepath.Join(fixtureRoot, "expect")

	repo, _, err := loadag.Load(repoRoot, loadag.Options{})
	if err != nil {
		return nil, fmt.Errorf("loading fixture repo: %w", err)
	}

	cases, useCaseSubdir, err := loadMatrix(filepath.Join(fixtureRoot, "matrix.yaml"))
	if err != nil {
		return nil, err
	}

	agentIDs := append([]string(nil), repo.Manifest.Enabled.Adapters...)
	sort.Strings(agentIDs)
	if agentFilter != "" {
		filtered := agentIDs[:0]
		for _, id := range agentIDs {
			if id == agentFilter {
				filtered = append(filtered, id)
			}
		}
		agentIDs = filtered
	}

	resolver := resolv.NewResolver(repo)
	report := &Report{}

	for _, agentID := range agentIDs {
		for _, c := range cases {
			req := &resolv.Request{
				RepoRoot:        repoRoot,
				OverrideMode:    c.Mode,
				OverrideProfile: c.Profile,
				OverrideBackend: c.Backend,
			}
			effective, err := resolver.Resolve(req)
			if err != nil {
				return nil, fmt.Errorf("resolving fixture case %s: %w", c.Name, err)
			}

			res, err := outputs.Plan(repo, effective, agentID)
			if err != nil {
				return nil, fmt.Errorf("planning fixture case %s: %w", c.Name, err)
			}

			actualDir, err := os.MkdirTemp("", "agents-fixture-")
			if err != nil {
				return nil, err
			}

			for i := range res.Plan.Outputs {
				rendered, err := outputs.Render(&res.Plan.Outputs[i])
				if err != nil {
					os.RemoveAll(actualDir)
					return nil, fmt.Errorf("rendering fixture case %s: %w", c.Name, err)
				}
				dest := filepath.Join(actualDir, filepath.FromSlash(res.Plan.Outputs[i].Path.String()))
				if err := fsutil.AtomicWrite(dest, []byte(rendered.ContentWithStamp)); err != nil {
					os.RemoveAll(actualDir)
					return nil, err
				}
			}

			expectDir := filepath.Join(expectRoot, agentID)
			if useCaseSubdir {
				expectDir = filepath.Join(expectDir, c.Name)
			}

			mismatches, err := CompareDirs(expectDir, actualDir)
			if err != nil {
				os.RemoveAll(actualDir)
				return nil, err
			}

			if len(mismatches) == 0 {
				report.Passed++
				os.RemoveAll(actualDir)
				continue
			}

			report.Failed++
			report.Failures = append(report.Failures, FixtureFailure{
				Fixture:    filepath.Base(fixtureRoot),
				AgentID:    agentID,
				Case:       c.Name,
				ActualDir:  actualDir,
				Mismatches: mismatches,
			})
		}
	}

	log.Printf("fixture %s: passed=%d failed=%d", filepath.Base(fixtureRoot), report.Passed, report.Failed)
	return report, nil
}

func loadMatrix(path string) ([]MatrixCase, bool, error) {
	defaultCases := []MatrixCase{{Name: "default"}}

	if _, err := os.Stat(path); err != nil {
		return defaultCases, false, nil
	}

	text, err := fsutil.ReadString(path)
	if err != nil {
		return nil, false, err
	}
	var m fixtureMatrix
	if err := model.DecodeStrict([]byte(text), &m); err != nil {
		return nil, false, fmt.Errorf("invalid matrix.yaml: %w", err)
	}
	if len(m.Cases) == 0 {
		return defaultCases, false, nil
	}
	return m.Cases, true, nil
}

// CompareDirs diffs two file trees: files present only in expected are
// "missing", only in actual are "unexpected", differing content yields a
// unified diff.
func CompareDirs(expectDir, actualDir string) ([]FileMismatch, error) {
	expected := map[string]bool{}
	if _, err := os.Stat(expectDir); err == nil {
		files, err := fsutil.WalkFiles(expectDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			expected[f] = true
		}
	}

	actual := map[string]bool{}
	if _, err := os.Stat(actualDir); err == nil {
		files, err := fsutil.WalkFiles(actualDir)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			actual[f] = true
		}
	}

	all := map[string]bool{}
	for f := range expected {
		all[f] = true
	}
	for f := range actual {
		all[f] = true
	}
	paths := make([]string, 0, len(all))
	for f := range all {
		paths = append(paths, f)
	}
	sort.Strings(paths)

	var mismatches []FileMismatch
	for _, rel := range paths {
		switch {
		case expected[rel] && !actual[rel]:
			mismatches = append(mismatches, FileMismatch{Path: rel, Kind: "missing"})
		case !expected[rel] && actual[rel]:
			mismatches = append(mismatches, FileMismatch{Path: rel, Kind: "unexpected"})
		default:
			want, err := fsutil.ReadString(filepath.Join(expectDir, filepath.FromSlash(rel)))
			if err != nil {
				return nil, err
			}
			got, err := fsutil.ReadString(filepath.Join(actualDir, filepath.FromSlash(rel)))
			if err != nil {
				return nil, err
			}
			if want != got {
				mismatches = append(mismatches, FileMismatch{
					Path: rel,
					Kind: "content",
					Diff: driftx.UnifiedDiff(want, got, "expected/"+rel, "actual/"+rel),
				})
			}
		}
	}
	return mismatches, nil
}
