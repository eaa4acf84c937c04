// Package explain builds per-output source maps and persists them under
// .agents/state/explain/, content-addressed by the sha256 of the output
// path.
package explain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

var log = logger.New("explain")

// Renderer describes how an output is produced.
type Renderer struct {
	Type     model.RendererType `json:"type"`
	Template string             `json:"template,omitempty"`
	Sources  []string           `json:"sources,omitempty"`
}

// Effective is the resolved-configuration slice recorded per output.
type Effective struct {
	ModeID            string            `json:"mode_id"`
	PolicyID          string            `json:"policy_id"`
	Profile           string            `json:"profile,omitempty"`
	Backend           model.BackendKind `json:"backend"`
	ScopesMatched     []string          `json:"scopes_matched"`
	PromptSourcePaths []string          `json:"prompt_source_paths"`
	SkillIDs          []string          `json:"skill_ids"`
	SnippetIDs        []string          `json:"snippet_ids"`
}

// SourceMap explains one output file.
type SourceMap struct {
	OutputPath   string                `json:"output_path"`
	Surface      string                `json:"surface,omitempty"`
	AdapterID    string                `json:"adapter_id"`
	OutputFormat model.OutputFormat    `json:"output_format"`
	Collision    model.CollisionPolicy `json:"collision"`
	Renderer     Renderer              `json:"renderer"`
	Effective    Effective             `json:"effective"`
}

// Record is the persisted envelope.
type Record struct {
	Version int       `json:"version"`
	Map     SourceMap `json:"map"`
}

// BuildSourceMaps joins a plan with its skeletons into explain maps,
// ordered by output path.
func BuildSourceMaps(plan *outputs.OutputPlan, skeletons []outputs.SourceMapSkeleton) []SourceMap {
	byOutput := map[string]*outputs.SourceMapSkeleton{}
	for i := range skeletons {
		byOutput[skeletons[i].OutputPath] = &skeletons[i]
	}

	maps := make([]SourceMap, 0, len(plan.Outputs))
	for i := range plan.Outputs {
		p := &plan.Outputs[i]
		skel := byOutput[p.Path.String()]

		scopeIDs := scopesFromContext(p.RenderContext)

		m := SourceMap{
			OutputPath:   p.Path.String(),
			Surface:      p.Surface,
			AdapterID:    plan.AgentID,
			OutputFormat: p.Format,
			Collision:    p.Collision,
			Renderer: Renderer{
				Type:     p.Renderer.Type,
				Template: p.Renderer.Template,
				Sources:  p.Renderer.Sources,
			},
			Effective: Effective{
				Profile:       p.StampBase.Profile,
				Backend:       plan.Backend,
				ScopesMatched: scopeIDs,
			},
		}
		if skel != nil {
			m.Effective.ModeID = skel.ModeID
			m.Effective.PolicyID = skel.PolicyID
			m.Effective.PromptSourcePaths = skel.PromptSourcePaths
			m.Effective.SkillIDs = skel.SkillIDs
			m.Effective.SnippetIDs = skel.SnippetIDs
		}
		maps = append(maps, m)
	}

	sort.Slice(maps, func(i, j int) bool { return maps[i].OutputPath < maps[j].OutputPath })
	return maps
}

func scopesFromContext(ctx map[string]any) []string {
	raw, ok := ctx["scopesMatched"]
	if !ok {
		return nil
	}
	switch t := raw.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			out = append(out, fmt.Sprint(v))
		}
		return out
	}
	return nil
}

// RecordFileName is the content-addressed filename for an output path.
func RecordFileName(outputPath string) string {
	return stamps.ContentSha256(outputPath) + ".json"
}

// PersistSourceMaps writes one record per output atomically under
// .agents/state/explain/.
func PersistSourceMaps(repoRoot string, plan *outputs.OutputPlan, skeletons []outputs.SourceMapSkeleton) error {
	dir := fsutil.ExplainDir(repoRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	// State stays out of version control from the first write on.
	gitignorePath := filepath.Join(filepath.Dir(dir), ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := fsutil.AtomicWrite(gitignorePath, []byte("state.yaml\nexplain/\n")); err != nil {
			return err
		}
	}

	for _, m := range BuildSourceMaps(plan, skeletons) {
		rec := Record{Version: 1, Map: m}
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("serializing explain record for %s: %w", m.OutputPath, err)
		}
		dest := filepath.Join(dir, RecordFileName(m.OutputPath))
		if err := fsutil.AtomicWrite(dest, data); err != nil {
			return err
		}
		log.Printf("persisted explain record for %s", m.OutputPath)
	}
	return nil
}

// Lookup loads the persisted record for an output path. Returns nil when
// no record exists.
func Lookup(repoRoot, outputPath string) (*Record, error) {
	dest := filepath.Join(fsutil.ExplainDir(repoRoot), RecordFileName(outputPath))
	data, err := os.ReadFile(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing explain record %s: %w", dest, err)
	}
	return &rec, nil
}

// FromStamp renders a reduced explanation from a file's embedded stamp,
// used when no persisted record exists.
func FromStamp(repoRoot, outputPath string) (*stamps.Stamp, error) {
	abs := filepath.Join(repoRoot, filepath.FromSlash(outputPath))
	text, err := fsutil.ReadString(abs)
	if err != nil {
		return nil, err
	}
	return stamps.Parse(text), nil
}
