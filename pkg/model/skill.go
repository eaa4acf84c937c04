package model

import "fmt"

// Skill describes one pluggable capability under .agents/skills/<id>/.
type Skill struct {
	ID          string `yaml:"id" json:"id"`
	Version     string `yaml:"version" json:"version"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`

	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`

	Activation    SkillActivation     `yaml:"activation" json:"activation"`
	Interface     SkillInterface      `yaml:"interface" json:"interface"`
	Contract      SkillContract       `yaml:"contract" json:"contract"`
	Requirements  SkillRequirements   `yaml:"requirements" json:"requirements"`
	Assets        *SkillAssets        `yaml:"assets,omitempty" json:"assets,omitempty"`
	Compatibility *SkillCompatibility `yaml:"compatibility,omitempty" json:"compatibility,omitempty"`

	X any `yaml:"x,omitempty" json:"x,omitempty"`
}

type SkillActivation string

const (
	ActivationInstructionOnly SkillActivation = "instruction_only"
	ActivationMcpTool         SkillActivation = "mcp_tool"
	ActivationCliShim         SkillActivation = "cli_shim"
)

func (a *SkillActivation) UnmarshalYAML(data []byte) error {
	switch v := SkillActivation(unquoteScalar(data)); v {
	case ActivationInstructionOnly, ActivationMcpTool, ActivationCliShim:
		*a = v
		return nil
	default:
		return fmt.Errorf("unknown skill activation: %q", v)
	}
}

type SkillInterface struct {
	Type       SkillInterfaceType `yaml:"type" json:"type"`
	Entrypoint string             `yaml:"entrypoint,omitempty" json:"entrypoint,omitempty"`
	Args       []string           `yaml:"args,omitempty" json:"args,omitempty"`
	Env        map[string]string  `yaml:"env,omitempty" json:"env,omitempty"`
}

type SkillInterfaceType string

const (
	InterfaceMcp     SkillInterfaceType = "mcp"
	InterfaceCli     SkillInterfaceType = "cli"
	InterfaceScript  SkillInterfaceType = "script"
	InterfaceLibrary SkillInterfaceType = "library"
)

func (t *SkillInterfaceType) UnmarshalYAML(data []byte) error {
	switch v := SkillInterfaceType(unquoteScalar(data)); v {
	case InterfaceMcp, InterfaceCli, InterfaceScript, InterfaceLibrary:
		*t = v
		return nil
	default:
		return fmt.Errorf("unknown skill interface type: %q", v)
	}
}

type SkillContract struct {
	Inputs  any `yaml:"inputs" json:"inputs"`
	Outputs any `yaml:"outputs" json:"outputs"`
}

type SkillRequirements struct {
	Capabilities SkillRequiredCapabilities `yaml:"capabilities" json:"capabilities"`
	Paths        *SkillRequiredPaths       `yaml:"paths,omitempty" json:"paths,omitempty"`
}

type SkillRequiredCapabilities struct {
	Filesystem RequiredLevel `yaml:"filesystem" json:"filesystem"`
	Exec       RequiredLevel `yaml:"exec" json:"exec"`
	Network    RequiredLevel `yaml:"network" json:"network"`
}

type RequiredLevel string

const (
	LevelNone       RequiredLevel = "none"
	LevelRead       RequiredLevel = "read"
	LevelWrite      RequiredLevel = "write"
	LevelRestricted RequiredLevel = "restricted"
	LevelFull       RequiredLevel = "full"
)

func (l *RequiredLevel) UnmarshalYAML(data []byte) error {
	switch v := RequiredLevel(unquoteScalar(data)); v {
	case LevelNone, LevelRead, LevelWrite, LevelRestricted, LevelFull:
		*l = v
		return nil
	default:
		return fmt.Errorf("unknown required level: %q", v)
	}
}

type SkillRequiredPaths struct {
	Needs  []string `yaml:"needs,omitempty" json:"needs,omitempty"`
	Writes []string `yaml:"writes,omitempty" json:"writes,omitempty"`
}

type SkillAssets struct {
	Mount       []string `yaml:"mount,omitempty" json:"mount,omitempty"`
	Materialize []string `yaml:"materialize,omitempty" json:"materialize,omitempty"`
}

type SkillCompatibility struct {
	Agents   []string      `yaml:"agents,omitempty" json:"agents,omitempty"`
	Backends []BackendKind `yaml:"backends,omitempty" json:"backends,omitempty"`
}
