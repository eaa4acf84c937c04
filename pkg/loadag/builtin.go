package loadag

import (
	_ "embed"

	"github.com/agentsfolder/agents-cli/pkg/constants"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

//go:embed templates/AGENTS.md.tmpl
var agentsMDTemplate string

// BuiltinTemplate returns the inline template for a built-in adapter, when
// one exists for the given name. Built-in templates bypass template_dir.
func BuiltinTemplate(agentID, templateName string) (string, bool) {
	if agentID == constants.CoreAdapterID && templateName == constants.AgentsMDTemplate {
		return agentsMDTemplate, true
	}
	return "", false
}

// injectBuiltinAdapters adds the core adapter unless the repository
// provides its own.
func injectBuiltinAdapters(adapters map[string]model.Adapter) {
	if _, ok := adapters[constants.CoreAdapterID]; ok {
		return
	}
	adapters[constants.CoreAdapterID] = builtinCoreAdapter()
}

func builtinCoreAdapter() model.Adapter {
	format := model.FormatMd
	collision := model.CollisionSharedOwner
	writeMode := model.WriteIfGenerated
	driftMethod := model.DriftSha256
	stampMethod := model.StampComment

	return model.Adapter{
		AgentID: constants.CoreAdapterID,
		Version: "0.1",
		BackendDefaults: model.BackendDefaults{
			Preferred: model.BackendMaterialize,
			Fallback:  model.BackendMaterialize,
		},
		Outputs: []model.AdapterOutput{
			{
				Path:      constants.AgentsMDPath,
				Format:    &format,
				Surface:   constants.AgentsMDSurface,
				Collision: &collision,
				Renderer: model.OutputRenderer{
					Type:     model.RendererTemplate,
					Template: constants.AgentsMDTemplate,
				},
				WritePolicy: &model.WritePolicy{Mode: &writeMode},
				DriftDetection: &model.DriftDetection{
					Method: &driftMethod,
					Stamp:  &stampMethod,
				},
			},
		},
	}
}
