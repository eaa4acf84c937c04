// Package outputs plans and renders an adapter's outputs: condition
// evaluation, scope expansion, renderer validation, collision resolution,
// and stamped rendering.
package outputs

import (
	"fmt"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

// PlannedOutput is one unit of the work list, carrying everything its
// renderer needs as a value snapshot.
type PlannedOutput struct {
	Path           fsutil.RepoPath
	Format         model.OutputFormat
	Surface        string
	Collision      model.CollisionPolicy
	Renderer       model.OutputRenderer
	WritePolicy    model.WritePolicy
	DriftDetection model.DriftDetection

	// TemplateDir is the adapter's resolved templates directory, empty for
	// built-in adapters rendering inline templates.
	TemplateDir    string
	InlineTemplate string

	// RenderContext is a cloned snapshot of everything the template reads.
	RenderContext map[string]any

	// StampBase is the stamp metadata minus the content hash, which is
	// filled at render time.
	StampBase stamps.StampMeta
}

// OutputPlan is the ordered work list for one adapter.
type OutputPlan struct {
	AgentID string
	Backend model.BackendKind
	Outputs []PlannedOutput
}

// SourceMapSkeleton mirrors one planned output for explain records.
type SourceMapSkeleton struct {
	AdapterID  string
	OutputPath string
	Template   string

	PromptSourcePaths []string

	ModeID     string
	PolicyID   string
	SkillIDs   []string
	SnippetIDs []string
}

// PlanResult bundles the plan with its source-map skeletons.
type PlanResult struct {
	Plan    OutputPlan
	Sources []SourceMapSkeleton
}

// UnknownAdapterError reports a plan request for an unloaded adapter.
type UnknownAdapterError struct{ AgentID string }

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter: %s", e.AgentID)
}

// PathCollisionError reports two planned outputs writing the same file.
type PathCollisionError struct {
	Path       string
	Contenders []string
}

func (e *PathCollisionError) Error() string {
	return fmt.Sprintf("output collision at path %s: %v", e.Path, e.Contenders)
}

// SurfaceCollisionError reports an unresolvable logical surface conflict.
type SurfaceCollisionError struct {
	Surface string
	Message string
}

func (e *SurfaceCollisionError) Error() string {
	return fmt.Sprintf("surface collision: %s: %s", e.Surface, e.Message)
}

// SharedOwnerViolationError reports a shared_owner output planned by an
// adapter that is not the designated owner.
type SharedOwnerViolationError struct {
	Surface string
	Owner   string
	AgentID string
}

func (e *SharedOwnerViolationError) Error() string {
	return fmt.Sprintf("surface %s is shared_owner; owner is %s (this adapter: %s)", e.Surface, e.Owner, e.AgentID)
}

// InvalidRendererError reports a renderer configuration the planner
// rejects.
type InvalidRendererError struct {
	Path    string
	Message string
}

func (e *InvalidRendererError) Error() string {
	return fmt.Sprintf("invalid renderer config for %s: %s", e.Path, e.Message)
}
