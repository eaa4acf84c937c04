package model

// Scope applies overrides when a target path matches any of its globs.
type Scope struct {
	ID       string         `yaml:"id" json:"id"`
	ApplyTo  []string       `yaml:"applyTo" json:"applyTo"`
	Priority int64          `yaml:"priority,omitempty" json:"priority,omitempty"`
	Overrides ScopeOverrides `yaml:"overrides" json:"overrides"`
}

type ScopeOverrides struct {
	Mode            string   `yaml:"mode,omitempty" json:"mode,omitempty"`
	Policy          string   `yaml:"policy,omitempty" json:"policy,omitempty"`
	EnableSkills    []string `yaml:"enableSkills,omitempty" json:"enableSkills,omitempty"`
	DisableSkills   []string `yaml:"disableSkills,omitempty" json:"disableSkills,omitempty"`
	IncludeSnippets []string `yaml:"includeSnippets,omitempty" json:"includeSnippets,omitempty"`
}
