package outputs

import (
	"fmt"

	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/stamps"
	"github.com/agentsfolder/agents-cli/pkg/templ"
)

var renderLog = logger.New("outputs:render")

// Rendered holds one rendered output in both stamped and unstamped form.
type Rendered struct {
	ContentWithoutStamp string
	ContentWithStamp    string
	Format              model.OutputFormat
	Meta                stamps.StampMeta
}

// UnsupportedRendererError reports a renderer type that is validated at
// plan time but not executable yet.
type UnsupportedRendererError struct {
	Type model.RendererType
}

func (e *UnsupportedRendererError) Error() string {
	return fmt.Sprintf("renderer not implemented: %s", e.Type)
}

// Render executes the planned output's renderer, computes the content
// hash, and applies the stamp. Only template renderers execute; concat,
// copy, and json_merge are validated at plan time and deferred.
func Render(out *PlannedOutput) (*Rendered, error) {
	var contentWithoutStamp string

	switch out.Renderer.Type {
	case model.RendererTemplate:
		engine := templ.NewEngine()

		if out.InlineTemplate != "" {
			rendered, err := engine.RenderInline(out.InlineTemplate, out.RenderContext)
			if err != nil {
				return nil, err
			}
			contentWithoutStamp = rendered
		} else {
			if out.TemplateDir == "" {
				return nil, &InvalidRendererError{Path: out.Path.String(), Message: "missing template_dir for template renderer"}
			}
			if err := engine.RegisterPartialsFromDir(out.TemplateDir); err != nil {
				return nil, err
			}
			rendered, err := engine.Render(out.Renderer.Template, out.RenderContext)
			if err != nil {
				return nil, err
			}
			contentWithoutStamp = rendered
		}

	default:
		return nil, &UnsupportedRendererError{Type: out.Renderer.Type}
	}

	meta := out.StampBase
	meta.ContentSha256 = stamps.ContentSha256(contentWithoutStamp)

	stamped, err := stamps.Apply(contentWithoutStamp, meta, out.DriftDetection.EffectiveStamp())
	if err != nil {
		return nil, err
	}

	renderLog.Printf("rendered %s (%d bytes)", out.Path.String(), len(stamped))
	return &Rendered{
		ContentWithoutStamp: contentWithoutStamp,
		ContentWithStamp:    stamped,
		Format:              out.Format,
		Meta:                meta,
	}, nil
}
