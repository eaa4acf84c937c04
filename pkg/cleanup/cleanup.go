// Package cleanup identifies generated files that are provably safe to
// delete and removes them, pruning directories that become empty.
//
// Safety rule: a file is eligible iff it exists, carries a parseable stamp
// whose generator is "agents", the stamp's adapter matches the requested
// agent, and the current content (without stamp) still matches the stamped
// hash. Unmanaged and drifted files are never eligible.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

var log = logger.New("cleanup")

// SkipReason explains why a planned path was not eligible.
type SkipReason string

const (
	SkipNoStamp              SkipReason = "no_stamp"
	SkipNotGeneratedByAgents SkipReason = "not_generated"
	SkipDifferentAdapter     SkipReason = "different_adapter"
	SkipDrifted              SkipReason = "drifted"
)

// SkippedPath is one ineligible path with its reason.
type SkippedPath struct {
	Path   string
	Reason SkipReason
}

// IdentifyReport lists eligible and skipped paths, both sorted.
type IdentifyReport struct {
	Eligible []string
	Skipped  []SkippedPath
}

// DeleteReport lists what was (or would be) removed.
type DeleteReport struct {
	Deleted    []string
	PrunedDirs []string
}

// IdentifyDeletable re-plans each agent's outputs and checks every planned
// path against the safety rule.
func IdentifyDeletable(repo *loadag.RepoConfig, effective *resolv.EffectiveConfig, agentIDs []string) (*IdentifyReport, error) {
	eligibleSet := map[string]bool{}
	var skipped []SkippedPath

	sortedAgents := append([]string(nil), agentIDs...)
	sort.Strings(sortedAgents)

	for _, agentID := range sortedAgents {
		res, err := outputs.Plan(repo, effective, agentID)
		if err != nil {
			return nil, err
		}

		for _, out := range res.Plan.Outputs {
			abs := out.Path.Abs(repo.RepoRoot)
			info, err := os.Stat(abs)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}

			existing, err := fsutil.ReadString(abs)
			if err != nil {
				return nil, err
			}

			stamp := stamps.Parse(existing)
			if stamp == nil {
				skipped = append(skipped, SkippedPath{Path: out.Path.String(), Reason: SkipNoStamp})
				continue
			}
			if stamp.Meta.Generator != "agents" {
				skipped = append(skipped, SkippedPath{Path: out.Path.String(), Reason: SkipNotGeneratedByAgents})
				continue
			}
			if stamp.Meta.AdapterAgentID != agentID {
				skipped = append(skipped, SkippedPath{Path: out.Path.String(), Reason: SkipDifferentAdapter})
				continue
			}

			withoutStamp, _ := stamps.Strip(existing)
			if stamps.ContentSha256(withoutStamp) != stamp.Meta.ContentSha256 {
				skipped = append(skipped, SkippedPath{Path: out.Path.String(), Reason: SkipDrifted})
				continue
			}

			eligibleSet[out.Path.String()] = true
		}
	}

	eligible := make([]string, 0, len(eligibleSet))
	for p := range eligibleSet {
		eligible = append(eligible, p)
	}
	sort.Strings(eligible)
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })

	log.Printf("identified %d eligible, %d skipped", len(eligible), len(skipped))
	return &IdentifyReport{Eligible: eligible, Skipped: skipped}, nil
}

// DeletePaths removes the eligible files. In dry-run mode it only
// enumerates. After deletion, empty parent directories are pruned up to
// (but never including) the repo root. Every path is re-verified to live
// inside the repo root.
func DeletePaths(repoRoot string, eligible []string, dryRun bool) (*DeleteReport, error) {
	report := &DeleteReport{}

	rootAbs, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), eligible...)
	sort.Strings(sorted)

	for _, rel := range sorted {
		rp, err := fsutil.RepoRelPath(rootAbs, rel)
		if err != nil {
			return nil, fmt.Errorf("refusing to delete %s: %w", rel, err)
		}
		abs := rp.Abs(rootAbs)
		if !strings.HasPrefix(abs, rootAbs+string(os.PathSeparator)) {
			return nil, fmt.Errorf("refusing to delete outside repo root: %s", rel)
		}

		if dryRun {
			report.Deleted = append(report.Deleted, rp.String())
			continue
		}

		if err := os.Remove(abs); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("deleting %s: %w", rel, err)
		}
		log.Printf("deleted %s", rp.String())
		report.Deleted = append(report.Deleted, rp.String())

		pruned, err := pruneEmptyParents(rootAbs, filepath.Dir(abs))
		if err != nil {
			return nil, err
		}
		report.PrunedDirs = append(report.PrunedDirs, pruned...)
	}

	sort.Strings(report.PrunedDirs)
	return report, nil
}

// pruneEmptyParents removes dir and its ancestors while they are empty,
// stopping at the repo root.
func pruneEmptyParents(rootAbs, dir string) ([]string, error) {
	var pruned []string
	for {
		if dir == rootAbs || !strings.HasPrefix(dir, rootAbs+string(os.PathSeparator)) {
			break
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
		rel, err := filepath.Rel(rootAbs, dir)
		if err == nil {
			pruned = append(pruned, filepath.ToSlash(rel))
		}
		dir = filepath.Dir(dir)
	}
	return pruned, nil
}
