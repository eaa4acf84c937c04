// Package driftx compares a plan against the working tree: per-output diff
// entries with unified diffs, and detection of stale generated files whose
// paths left the plan.
package driftx

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

var log = logger.New("driftx")

// DiffKind classifies one plan-vs-disk entry.
type DiffKind string

const (
	DiffCreate          DiffKind = "create"
	DiffUpdate          DiffKind = "update"
	DiffDelete          DiffKind = "delete"
	DiffNoop            DiffKind = "noop"
	DiffUnmanagedExists DiffKind = "unmanaged_exists"
	DiffDrifted         DiffKind = "drifted"
)

// DiffEntry is one path's comparison result.
type DiffEntry struct {
	Path  string
	Kind  DiffKind
	Drift stamps.DriftStatus

	// Details carries optional diagnostics.
	Details string

	// UnifiedDiff is set for Create, Update, Drifted, and UnmanagedExists;
	// never for Noop or Delete.
	UnifiedDiff string
}

// DiffReport is the ordered set of entries for one plan.
type DiffReport struct {
	Entries []DiffEntry
}

// DiffPlan renders each planned output and classifies it against disk.
// Entries follow plan order, which is already (path, surface) sorted.
func DiffPlan(repoRoot string, plan *outputs.OutputPlan) (*DiffReport, error) {
	report := &DiffReport{}
	for i := range plan.Outputs {
		entry, err := diffOne(repoRoot, &plan.Outputs[i])
		if err != nil {
			return nil, err
		}
		report.Entries = append(report.Entries, *entry)
	}
	return report, nil
}

func diffOne(repoRoot string, out *outputs.PlannedOutput) (*DiffEntry, error) {
	targetPath := out.Path.Abs(repoRoot)

	rendered, err := outputs.Render(out)
	if err != nil {
		return nil, err
	}
	planned := rendered.ContentWithoutStamp

	drift, err := stamps.Classify(targetPath, planned, &out.DriftDetection)
	if err != nil {
		return nil, err
	}

	existingWithoutStamp := ""
	if drift != stamps.DriftMissing {
		existing, err := fsutil.ReadString(targetPath)
		if err != nil {
			return nil, err
		}
		existingWithoutStamp, _ = stamps.Strip(existing)
	}

	entry := &DiffEntry{Path: out.Path.String(), Drift: drift}

	switch drift {
	case stamps.DriftMissing:
		entry.Kind = DiffCreate
	case stamps.DriftUnmanaged:
		entry.Kind = DiffUnmanagedExists
	case stamps.DriftClean:
		if existingWithoutStamp == planned {
			entry.Kind = DiffNoop
		} else {
			// Rare: stamp mismatch or newline normalization difference.
			entry.Kind = DiffUpdate
			entry.Details = "content differs but drift classified clean"
		}
	case stamps.DriftDrifted:
		entry.Kind = DiffDrifted
	}

	switch entry.Kind {
	case DiffCreate:
		entry.UnifiedDiff = UnifiedDiff("", planned, "(missing)", out.Path.String())
	case DiffUpdate, DiffDrifted:
		entry.UnifiedDiff = UnifiedDiff(existingWithoutStamp, planned, "(existing)", out.Path.String())
	case DiffUnmanagedExists:
		entry.UnifiedDiff = UnifiedDiff(existingWithoutStamp, planned, "(unmanaged)", out.Path.String())
	}

	return entry, nil
}

// UnifiedDiff produces a 3-context unified diff between newline-normalized
// old and new content.
func UnifiedDiff(old, new, oldName, newName string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.ReplaceAll(old, "\r\n", "\n")),
		B:        difflib.SplitLines(strings.ReplaceAll(new, "\r\n", "\n")),
		FromFile: oldName,
		ToFile:   newName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// StaleGenerated walks the repository for files stamped by the plan's
// adapter whose paths are no longer planned. Those become Delete entries.
func StaleGenerated(repoRoot string, plan *outputs.OutputPlan) ([]DiffEntry, error) {
	plannedPaths := map[string]bool{}
	for _, out := range plan.Outputs {
		plannedPaths[out.Path.String()] = true
	}

	files, err := fsutil.WalkFiles(repoRoot)
	if err != nil {
		return nil, err
	}

	var entries []DiffEntry
	for _, rel := range files {
		// Generated files never live under the configuration tree.
		if rel == ".agents" || strings.HasPrefix(rel, ".agents/") {
			continue
		}
		if strings.HasPrefix(rel, ".git/") {
			continue
		}
		if plannedPaths[rel] {
			continue
		}

		text, err := fsutil.ReadString(filepath.Join(repoRoot, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		stamp := stamps.Parse(text)
		if stamp == nil {
			continue
		}
		if stamp.Meta.Generator != "agents" || stamp.Meta.AdapterAgentID != plan.AgentID {
			continue
		}

		log.Printf("stale generated file: %s", rel)
		entries = append(entries, DiffEntry{Path: rel, Kind: DiffDelete})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}
