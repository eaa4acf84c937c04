package outputs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/prompts"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/skillpl"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
)

var planLog = logger.New("outputs:plan")

const scopeIDPlaceholder = "{{scopeId}}"

// Plan evaluates the adapter's declared outputs against the effective
// configuration and returns the collision-resolved, deterministically
// ordered work list.
func Plan(repo *loadag.RepoConfig, effective *resolv.EffectiveConfig, agentID string) (*PlanResult, error) {
	adapter, ok := repo.Adapters[agentID]
	if !ok {
		return nil, &UnknownAdapterError{AgentID: agentID}
	}

	templateDir := repo.AdapterTemplateDirs[agentID]

	effPrompts, promptSources, err := prompts.Compose(repo, effective)
	if err != nil {
		return nil, &InvalidRendererError{Path: "<prompts>", Message: err.Error()}
	}

	skills, err := skillpl.NewPlanner(repo).Plan(effective, agentID)
	if err != nil {
		return nil, &InvalidRendererError{Path: "<skills>", Message: err.Error()}
	}

	renderCtx, err := buildRenderContext(repo, effective, agentID, effPrompts, skills)
	if err != nil {
		return nil, &InvalidRendererError{Path: "<context>", Message: err.Error()}
	}

	stampBase := stamps.StampMeta{
		Generator:           "agents",
		AdapterAgentID:      agentID,
		ManifestSpecVersion: repo.Manifest.SpecVersion,
		Mode:                effective.ModeID,
		Policy:              effective.PolicyID,
		Backend:             effective.Backend,
		Profile:             effective.Profile,
	}

	planned, err := evaluateOutputs(repo, effective, &adapter, templateDir, renderCtx, stampBase)
	if err != nil {
		return nil, err
	}

	planned, err = resolveCollisions(repo, agentID, planned)
	if err != nil {
		return nil, err
	}

	promptPaths := make([]string, 0, len(promptSources))
	for _, s := range promptSources {
		promptPaths = append(promptPaths, s.Path)
	}
	sort.Strings(promptPaths)

	sources := make([]SourceMapSkeleton, 0, len(planned))
	for _, p := range planned {
		sources = append(sources, SourceMapSkeleton{
			AdapterID:         agentID,
			OutputPath:        p.Path.String(),
			Template:          p.Renderer.Template,
			PromptSourcePaths: promptPaths,
			ModeID:            effective.ModeID,
			PolicyID:          effective.PolicyID,
			SkillIDs:          effective.SkillIDsEnabled,
			SnippetIDs:        effective.SnippetIDsIncluded,
		})
	}

	planLog.Printf("planned %d outputs for agent %s", len(planned), agentID)
	return &PlanResult{
		Plan: OutputPlan{
			AgentID: agentID,
			Backend: effective.Backend,
			Outputs: planned,
		},
		Sources: sources,
	}, nil
}

func evaluateOutputs(
	repo *loadag.RepoConfig,
	effective *resolv.EffectiveConfig,
	adapter *model.Adapter,
	templateDir string,
	renderCtx map[string]any,
	stampBase stamps.StampMeta,
) ([]PlannedOutput, error) {
	var planned []PlannedOutput

	for _, out := range adapter.Outputs {
		if !conditionAllows(&out, effective) {
			continue
		}
		if err := validateRendererShape(&out); err != nil {
			return nil, err
		}

		if strings.Contains(out.Path, scopeIDPlaceholder) {
			scopeIDs := make([]string, 0, len(repo.Scopes))
			for id := range repo.Scopes {
				scopeIDs = append(scopeIDs, id)
			}
			sort.Strings(scopeIDs)

			for _, scopeID := range scopeIDs {
				scope := repo.Scopes[scopeID]

				scoped := out
				scoped.Path = strings.ReplaceAll(out.Path, scopeIDPlaceholder, sanitizeScopeID(scope.ID))

				scopedCtx := cloneContext(renderCtx)
				scopedCtx["scope"] = map[string]any{
					"id":      scope.ID,
					"applyTo": append([]string(nil), scope.ApplyTo...),
				}

				p, err := buildPlannedOutput(repo, adapter.AgentID, &scoped, templateDir, scopedCtx, stampBase)
				if err != nil {
					return nil, err
				}
				if err := validateRendererSources(repo, effective, p); err != nil {
					return nil, err
				}
				planned = append(planned, *p)
			}
			continue
		}

		p, err := buildPlannedOutput(repo, adapter.AgentID, &out, templateDir, cloneContext(renderCtx), stampBase)
		if err != nil {
			return nil, err
		}
		if err := validateRendererSources(repo, effective, p); err != nil {
			return nil, err
		}
		planned = append(planned, *p)
	}

	sortPlanned(planned)
	return planned, nil
}

func sortPlanned(planned []PlannedOutput) {
	sort.SliceStable(planned, func(i, j int) bool {
		if planned[i].Path.String() != planned[j].Path.String() {
			return planned[i].Path.String() < planned[j].Path.String()
		}
		return planned[i].Surface < planned[j].Surface
	})
}

// sanitizeScopeID restricts a scope id to [A-Za-z0-9_-] for use in paths.
func sanitizeScopeID(id string) string {
	var b strings.Builder
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "scope"
	}
	return b.String()
}

func conditionAllows(out *model.AdapterOutput, effective *resolv.EffectiveConfig) bool {
	cond := out.Condition
	if cond == nil {
		return true
	}
	if len(cond.BackendIn) > 0 {
		found := false
		for _, b := range cond.BackendIn {
			if b == effective.Backend {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(cond.ProfileIn) > 0 {
		if effective.Profile == "" {
			return false
		}
		found := false
		for _, p := range cond.ProfileIn {
			if p == effective.Profile {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// validateRendererShape checks the structural invariants of a renderer
// declaration before any path expansion happens.
func validateRendererShape(out *model.AdapterOutput) error {
	fail := func(message string) error {
		return &InvalidRendererError{Path: out.Path, Message: message}
	}

	switch out.Renderer.Type {
	case model.RendererTemplate:
		if strings.TrimSpace(out.Renderer.Template) == "" {
			return fail("template renderer requires `template`")
		}
	case model.RendererConcat:
		if len(out.Renderer.Sources) == 0 {
			return fail("concat renderer requires `sources`")
		}
	case model.RendererCopy:
		if len(out.Renderer.Sources) == 0 {
			return fail("copy renderer requires `sources`")
		}
	case model.RendererJsonMerge:
		if len(out.Renderer.Sources) == 0 {
			return fail("json_merge renderer requires `sources`")
		}
		if out.Renderer.JsonMergeStrategy == nil {
			return fail("json_merge renderer requires `jsonMergeStrategy`")
		}
	}
	return nil
}

func buildPlannedOutput(
	repo *loadag.RepoConfig,
	agentID string,
	out *model.AdapterOutput,
	templateDir string,
	renderCtx map[string]any,
	stampBase stamps.StampMeta,
) (*PlannedOutput, error) {
	path, err := fsutil.RepoRelPath(repo.RepoRoot, out.Path)
	if err != nil {
		return nil, &InvalidRendererError{Path: out.Path, Message: err.Error()}
	}

	format := model.FormatText
	if out.Format != nil {
		format = *out.Format
	}
	collision := model.CollisionError
	if out.Collision != nil {
		collision = *out.Collision
	}

	writePolicy := model.WritePolicy{}
	if out.WritePolicy != nil {
		writePolicy = *out.WritePolicy
	}
	driftDetection := model.DriftDetection{}
	if out.DriftDetection != nil {
		driftDetection = *out.DriftDetection
	}

	inline := ""
	if templateDir == "" && out.Renderer.Type == model.RendererTemplate {
		if text, ok := loadag.BuiltinTemplate(agentID, out.Renderer.Template); ok {
			inline = text
		}
	}

	return &PlannedOutput{
		Path:           path,
		Format:         format,
		Surface:        out.Surface,
		Collision:      collision,
		Renderer:       out.Renderer,
		WritePolicy:    writePolicy,
		DriftDetection: driftDetection,
		TemplateDir:    templateDir,
		InlineTemplate: inline,
		RenderContext:  renderCtx,
		StampBase:      stampBase,
	}, nil
}

// validateRendererSources checks that every declared source resolves:
// templates exist under template_dir, prompt names are known, snippets are
// both included and loaded, and files exist in the repo.
func validateRendererSources(repo *loadag.RepoConfig, effective *resolv.EffectiveConfig, out *PlannedOutput) error {
	fail := func(message string) error {
		return &InvalidRendererError{Path: out.Path.String(), Message: message}
	}

	if out.Renderer.Type == model.RendererTemplate {
		name := strings.TrimSpace(out.Renderer.Template)
		if name == "" {
			return fail("template renderer requires `template`")
		}
		if out.InlineTemplate == "" {
			if out.TemplateDir == "" {
				return fail("template renderer requires adapter template_dir")
			}
			if !templateExists(out.TemplateDir, name) {
				return fail(fmt.Sprintf("unknown template source: %s", name))
			}
		}
	}

	for _, raw := range out.Renderer.Sources {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return fail("renderer source must be non-empty")
		}

		kind, val, hasKind := strings.Cut(raw, ":")
		if !hasKind {
			kind, val = "", raw
		}

		switch kind {
		case "template":
			if out.TemplateDir == "" {
				return fail("template source requires adapter template_dir")
			}
			name := strings.TrimSpace(val)
			if name == "" {
				return fail("template:<name> must include a template name")
			}
			if !templateExists(out.TemplateDir, name) {
				return fail(fmt.Sprintf("unknown template source: %s", raw))
			}
		case "prompt":
			switch strings.TrimSpace(val) {
			case "base", "project", "composed":
			default:
				return fail(fmt.Sprintf("unknown prompt source: %s", raw))
			}
		case "snippet":
			id := strings.TrimSpace(val)
			if id == "" {
				return fail("snippet:<id> must include a snippet id")
			}
			if !containsString(effective.SnippetIDsIncluded, id) {
				return fail(fmt.Sprintf("snippet not included in effective config: %s", raw))
			}
			if _, ok := repo.Prompts.Snippets[id]; !ok {
				return fail(fmt.Sprintf("unknown snippet id: %s", raw))
			}
		case "repo", "file", "":
			rel := strings.TrimSpace(val)
			if rel == "" {
				return fail(fmt.Sprintf("invalid file source: %s", raw))
			}
			rp, err := fsutil.RepoRelPath(repo.RepoRoot, rel)
			if err != nil {
				return fail(fmt.Sprintf("invalid file source: %s: %v", raw, err))
			}
			if _, err := os.Stat(rp.Abs(repo.RepoRoot)); err != nil {
				return fail(fmt.Sprintf("missing file source: %s", raw))
			}
		default:
			return fail(fmt.Sprintf("unknown renderer source kind: %s", kind))
		}
	}
	return nil
}

// templateExists checks a template name against the templates directory,
// rejecting absolute paths and parent traversal.
func templateExists(templateDir, name string) bool {
	if name == "" || filepath.IsAbs(name) {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return false
		}
	}
	info, err := os.Stat(filepath.Join(templateDir, filepath.FromSlash(name)))
	return err == nil && info.Mode().IsRegular()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
