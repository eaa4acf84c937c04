package model

// Manifest is the process-wide configuration entry point loaded from
// .agents/manifest.yaml.
type Manifest struct {
	SpecVersion string      `yaml:"specVersion" json:"specVersion"`
	Project     *Project    `yaml:"project,omitempty" json:"project,omitempty"`
	Defaults    Defaults    `yaml:"defaults" json:"defaults"`
	Enabled     Enabled     `yaml:"enabled" json:"enabled"`
	Resolution  *Resolution `yaml:"resolution,omitempty" json:"resolution,omitempty"`
	Backends    *Backends   `yaml:"backends,omitempty" json:"backends,omitempty"`
	X           any         `yaml:"x,omitempty" json:"x,omitempty"`
}

// Project carries optional descriptive metadata about the repository.
type Project struct {
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Languages   []string `yaml:"languages,omitempty" json:"languages,omitempty"`
	Frameworks  []string `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
}

// Defaults supplies the lowest-precedence layer of the resolver.
type Defaults struct {
	Mode                string       `yaml:"mode" json:"mode"`
	Policy              string       `yaml:"policy" json:"policy"`
	Profile             string       `yaml:"profile,omitempty" json:"profile,omitempty"`
	Backend             *BackendKind `yaml:"backend,omitempty" json:"backend,omitempty"`
	SharedSurfacesOwner string       `yaml:"sharedSurfacesOwner,omitempty" json:"sharedSurfacesOwner,omitempty"`
}

// Enabled lists the entity ids the manifest activates. Every id must
// resolve to a loaded entity.
type Enabled struct {
	Modes    []string `yaml:"modes" json:"modes"`
	Policies []string `yaml:"policies" json:"policies"`
	Skills   []string `yaml:"skills" json:"skills"`
	Adapters []string `yaml:"adapters" json:"adapters"`
}

// Resolution tunes resolver behavior.
type Resolution struct {
	EnableUserOverlay bool        `yaml:"enableUserOverlay,omitempty" json:"enableUserOverlay,omitempty"`
	DenyOverridesAllow bool       `yaml:"denyOverridesAllow,omitempty" json:"denyOverridesAllow,omitempty"`
	OnConflict        *OnConflict `yaml:"onConflict,omitempty" json:"onConflict,omitempty"`
}

// Backends selects backends globally and per agent.
type Backends struct {
	Default *BackendKind           `yaml:"default,omitempty" json:"default,omitempty"`
	ByAgent map[string]BackendKind `yaml:"byAgent,omitempty" json:"byAgent,omitempty"`
}
