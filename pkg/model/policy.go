package model

// Policy is a named capability envelope.
type Policy struct {
	ID           string        `yaml:"id" json:"id"`
	Description  string        `yaml:"description" json:"description"`
	Capabilities Capabilities  `yaml:"capabilities" json:"capabilities"`
	Paths        Paths         `yaml:"paths" json:"paths"`
	Confirmations Confirmations `yaml:"confirmations" json:"confirmations"`
	Limits       *Limits       `yaml:"limits,omitempty" json:"limits,omitempty"`
	X            any           `yaml:"x,omitempty" json:"x,omitempty"`
}

type Capabilities struct {
	Filesystem *FilesystemCaps `yaml:"filesystem,omitempty" json:"filesystem,omitempty"`
	Exec       *ExecCaps       `yaml:"exec,omitempty" json:"exec,omitempty"`
	Network    *NetworkCaps    `yaml:"network,omitempty" json:"network,omitempty"`
	Mcp        *McpCaps        `yaml:"mcp,omitempty" json:"mcp,omitempty"`
}

type FilesystemCaps struct {
	Read   *bool `yaml:"read,omitempty" json:"read,omitempty"`
	Write  *bool `yaml:"write,omitempty" json:"write,omitempty"`
	Delete bool  `yaml:"delete,omitempty" json:"delete,omitempty"`
	Rename bool  `yaml:"rename,omitempty" json:"rename,omitempty"`
}

// CanRead defaults to true when unset.
func (f *FilesystemCaps) CanRead() bool { return f.Read == nil || *f.Read }

// CanWrite defaults to true when unset.
func (f *FilesystemCaps) CanWrite() bool { return f.Write == nil || *f.Write }

type ExecCaps struct {
	Enabled *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Allow   []string `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny    []string `yaml:"deny,omitempty" json:"deny,omitempty"`
}

// IsEnabled defaults to true when unset.
func (e *ExecCaps) IsEnabled() bool { return e.Enabled == nil || *e.Enabled }

type NetworkCaps struct {
	Enabled   bool     `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	AllowHosts []string `yaml:"allowHosts,omitempty" json:"allowHosts,omitempty"`
	DenyHosts  []string `yaml:"denyHosts,omitempty" json:"denyHosts,omitempty"`
}

type McpCaps struct {
	Enabled      *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	AllowServers []string `yaml:"allowServers,omitempty" json:"allowServers,omitempty"`
	DenyServers  []string `yaml:"denyServers,omitempty" json:"denyServers,omitempty"`
}

type Paths struct {
	Allow  []string `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny   []string `yaml:"deny,omitempty" json:"deny,omitempty"`
	Redact []string `yaml:"redact,omitempty" json:"redact,omitempty"`
}

type Confirmations struct {
	RequiredFor []ConfirmationType `yaml:"requiredFor,omitempty" json:"requiredFor,omitempty"`
}

// Requires reports whether the policy gates op behind a confirmation.
func (c Confirmations) Requires(op ConfirmationType) bool {
	for _, t := range c.RequiredFor {
		if t == op {
			return true
		}
	}
	return false
}

type Limits struct {
	MaxFilesChanged      *int64 `yaml:"maxFilesChanged,omitempty" json:"maxFilesChanged,omitempty"`
	MaxPatchLines        *int64 `yaml:"maxPatchLines,omitempty" json:"maxPatchLines,omitempty"`
	MaxCommandRuntimeSec *int64 `yaml:"maxCommandRuntimeSec,omitempty" json:"maxCommandRuntimeSec,omitempty"`
}
