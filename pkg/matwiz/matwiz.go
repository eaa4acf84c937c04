// Package matwiz is the materialize backend: it writes rendered outputs
// into the repository, honoring each output's write policy, refusing to
// clobber unmanaged files, and maintaining the managed .gitignore block.
package matwiz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/constants"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

var log = logger.New("matwiz")

// RenderedOutput pairs a planned output with its fully rendered bytes.
type RenderedOutput struct {
	Output   *outputs.PlannedOutput
	Rendered *outputs.Rendered
}

// ConflictReason classifies a refused write.
type ConflictReason string

const (
	ConflictUnmanaged ConflictReason = "unmanaged"
	ConflictOther     ConflictReason = "other"
)

// ConflictDetail explains one refused write.
type ConflictDetail struct {
	Path    string
	Reason  ConflictReason
	Message string
	Hints   []string
}

// ApplyReport summarizes one apply call.
type ApplyReport struct {
	Written         []string
	Skipped         []string
	Conflicts       []string
	ConflictDetails []ConflictDetail
}

// Session carries the state between prepare and apply.
type Session struct {
	RepoRoot string
	Plan     *outputs.OutputPlan
}

// Prepare opens a session for a plan.
func Prepare(repoRoot string, plan *outputs.OutputPlan) (*Session, error) {
	if _, err := os.Stat(repoRoot); err != nil {
		return nil, fmt.Errorf("repo root not accessible: %w", err)
	}
	return &Session{RepoRoot: repoRoot, Plan: plan}, nil
}

// Apply writes each rendered output per its write policy. Refusals become
// conflicts in the report instead of aborting the remaining outputs.
// Writes are atomic.
func Apply(session *Session, rendered []RenderedOutput) (*ApplyReport, error) {
	report := &ApplyReport{}
	var gitignorePaths []string

	for _, r := range rendered {
		path := r.Output.Path.String()
		dest := r.Output.Path.Abs(session.RepoRoot)

		mode := r.Output.WritePolicy.EffectiveMode()
		if mode == model.WriteNever {
			log.Printf("skip %s (writePolicy=never)", path)
			report.Skipped = append(report.Skipped, path)
			continue
		}

		if mode == model.WriteIfGenerated {
			if _, err := os.Stat(dest); err == nil {
				existing, err := fsutil.ReadString(dest)
				if err != nil {
					return nil, err
				}
				if stamps.Parse(existing) == nil {
					log.Printf("conflict %s (unmanaged)", path)
					report.Conflicts = append(report.Conflicts, path)
					report.ConflictDetails = append(report.ConflictDetails, ConflictDetail{
						Path:    path,
						Reason:  ConflictUnmanaged,
						Message: fmt.Sprintf("unmanaged file exists at %s", path),
						Hints: []string{
							"run `agents diff --agent <id>` to see conflicts",
							"change output.writePolicy.mode to `always` to force overwrite",
						},
					})
					continue
				}
			}
		}

		if err := fsutil.AtomicWrite(dest, []byte(r.Rendered.ContentWithStamp)); err != nil {
			return report, err
		}
		log.Printf("write %s", path)
		report.Written = append(report.Written, path)

		if r.Output.WritePolicy.Gitignore {
			gitignorePaths = append(gitignorePaths, path)
		}
	}

	if len(gitignorePaths) > 0 {
		if err := UpdateGitignoreBlock(session.RepoRoot, gitignorePaths); err != nil {
			return report, err
		}
	}

	sort.Strings(report.Written)
	sort.Strings(report.Skipped)
	sort.Strings(report.Conflicts)
	return report, nil
}

// UpdateGitignoreBlock idempotently rewrites the managed block in the
// repository root .gitignore: a sorted unique path list between the BEGIN
// and END markers, with all surrounding lines preserved.
func UpdateGitignoreBlock(repoRoot string, paths []string) error {
	unique := map[string]bool{}
	for _, p := range paths {
		unique[p] = true
	}
	sorted := make([]string, 0, len(unique))
	for p := range unique {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	gitignorePath := repoRoot + "/.gitignore"
	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = strings.ReplaceAll(string(data), "\r\n", "\n")
	}

	before, after, found := cutManagedBlock(existing)

	var b strings.Builder
	b.WriteString(before)
	if before != "" && !strings.HasSuffix(before, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(constants.GitignoreBlockBegin)
	b.WriteString("\n")
	for _, p := range sorted {
		b.WriteString(p)
		b.WriteString("\n")
	}
	b.WriteString(constants.GitignoreBlockEnd)
	b.WriteString("\n")
	if found && after != "" {
		b.WriteString(after)
	}

	return fsutil.AtomicWrite(gitignorePath, []byte(b.String()))
}

// cutManagedBlock splits content around the managed block. When no block
// exists, everything is "before" and found is false.
func cutManagedBlock(content string) (before, after string, found bool) {
	beginIdx := strings.Index(content, constants.GitignoreBlockBegin)
	if beginIdx < 0 {
		return content, "", false
	}
	rest := content[beginIdx:]
	endIdx := strings.Index(rest, constants.GitignoreBlockEnd)
	if endIdx < 0 {
		return content, "", false
	}
	afterStart := beginIdx + endIdx + len(constants.GitignoreBlockEnd)
	after = content[afterStart:]
	after = strings.TrimPrefix(after, "\n")
	return content[:beginIdx], after, true
}
