package outputs

import (
	"fmt"
	"sort"

	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

// resolveCollisions enforces shared-owner rules, rejects physical path
// collisions, and resolves logical surface collisions per policy. The
// result is re-sorted by (path, surface) and never contains two outputs
// with the same path.
func resolveCollisions(repo *loadag.RepoConfig, agentID string, planned []PlannedOutput) ([]PlannedOutput, error) {
	sharedOwner := repo.SharedSurfacesOwner()

	// Shared-owner surfaces are enforced even without a collision.
	for i := range planned {
		p := &planned[i]
		if p.Collision != model.CollisionSharedOwner {
			continue
		}
		if p.Surface == "" {
			return nil, &InvalidRendererError{
				Path:    p.Path.String(),
				Message: "collision=shared_owner requires a non-empty `surface`",
			}
		}
		if sharedOwner != agentID {
			return nil, &SharedOwnerViolationError{
				Surface: p.Surface,
				Owner:   sharedOwner,
				AgentID: agentID,
			}
		}
	}

	// Physical path collisions are always fatal.
	byPath := map[string][]string{}
	for i := range planned {
		p := &planned[i]
		byPath[p.Path.String()] = append(byPath[p.Path.String()], describeOutput(p))
	}
	paths := make([]string, 0, len(byPath))
	for path := range byPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if len(byPath[path]) > 1 {
			return nil, &PathCollisionError{Path: path, Contenders: byPath[path]}
		}
	}

	// Group by logical surface.
	bySurface := map[string][]PlannedOutput{}
	var out []PlannedOutput
	for _, p := range planned {
		if p.Surface != "" {
			bySurface[p.Surface] = append(bySurface[p.Surface], p)
		} else {
			out = append(out, p)
		}
	}

	surfaces := make([]string, 0, len(bySurface))
	for s := range bySurface {
		surfaces = append(surfaces, s)
	}
	sort.Strings(surfaces)

	for _, surface := range surfaces {
		items := bySurface[surface]
		if len(items) == 1 {
			out = append(out, items[0])
			continue
		}

		resolved, err := resolveSurfaceGroup(surface, items)
		if err != nil {
			return nil, err
		}
		out = append(out, *resolved)
	}

	sortPlanned(out)
	return out, nil
}

func resolveSurfaceGroup(surface string, items []PlannedOutput) (*PlannedOutput, error) {
	policy := items[0].Collision
	for _, p := range items[1:] {
		if p.Collision != policy {
			var policies []string
			for _, q := range items {
				policies = append(policies, fmt.Sprintf("%s=%s", q.Path.String(), q.Collision))
			}
			sort.Strings(policies)
			return nil, &SurfaceCollisionError{
				Surface: surface,
				Message: fmt.Sprintf("collision policies differ: %v", policies),
			}
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Path.String() < items[j].Path.String()
	})

	switch policy {
	case model.CollisionError:
		return nil, &SurfaceCollisionError{
			Surface: surface,
			Message: fmt.Sprintf("multiple outputs for surface (collision=error): %v", pathsOf(items)),
		}

	case model.CollisionSharedOwner:
		return nil, &SurfaceCollisionError{
			Surface: surface,
			Message: fmt.Sprintf("shared_owner surface must be unique within an adapter: %v", pathsOf(items)),
		}

	case model.CollisionOverwrite:
		// Deterministic winner: smallest path.
		winner := items[0]
		return &winner, nil

	case model.CollisionMerge:
		return mergeSurfaceGroup(surface, items)
	}
	return nil, &SurfaceCollisionError{Surface: surface, Message: "unhandled collision policy"}
}

// mergeSurfaceGroup rewrites a group of template outputs into a single
// concat output over their templates in ascending path order. Contenders
// must agree on format, writePolicy, and driftDetection.
func mergeSurfaceGroup(surface string, items []PlannedOutput) (*PlannedOutput, error) {
	first := items[0]
	for _, p := range items[1:] {
		if p.Format != first.Format {
			return nil, &SurfaceCollisionError{Surface: surface, Message: "merge requires all outputs to have the same format"}
		}
		if !writePolicyEq(p.WritePolicy, first.WritePolicy) {
			return nil, &SurfaceCollisionError{Surface: surface, Message: "merge requires all outputs to have the same writePolicy"}
		}
		if !driftDetectionEq(p.DriftDetection, first.DriftDetection) {
			return nil, &SurfaceCollisionError{Surface: surface, Message: "merge requires all outputs to have the same driftDetection"}
		}
	}

	var sources []string
	for _, p := range items {
		if p.Renderer.Type != model.RendererTemplate {
			return nil, &SurfaceCollisionError{Surface: surface, Message: "merge currently supports template-only outputs"}
		}
		if p.Renderer.Template == "" {
			return nil, &SurfaceCollisionError{Surface: surface, Message: "merge requires each output to specify a template"}
		}
		sources = append(sources, "template:"+p.Renderer.Template)
	}

	merged := first
	merged.Renderer.Type = model.RendererConcat
	merged.Renderer.Template = ""
	merged.Renderer.Sources = sources
	merged.Surface = surface
	return &merged, nil
}

func describeOutput(p *PlannedOutput) string {
	desc := ""
	if p.Surface != "" {
		desc += "surface=" + p.Surface + " "
	}
	desc += "renderer=" + string(p.Renderer.Type)
	if p.Renderer.Template != "" {
		desc += " template=" + p.Renderer.Template
	}
	return desc
}

func pathsOf(items []PlannedOutput) []string {
	out := make([]string, 0, len(items))
	for _, p := range items {
		out = append(out, p.Path.String())
	}
	sort.Strings(out)
	return out
}

func writePolicyEq(a, b model.WritePolicy) bool {
	return a.EffectiveMode() == b.EffectiveMode() && a.Gitignore == b.Gitignore
}

func driftDetectionEq(a, b model.DriftDetection) bool {
	return a.EffectiveMethod() == b.EffectiveMethod() && a.EffectiveStamp() == b.EffectiveStamp()
}
