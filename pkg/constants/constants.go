// Package constants holds values shared across the CLI and core packages.
package constants

// CLIName is the binary name used in user-facing output and hints.
const CLIName = "agents"

// GeneratorName is the value recorded in every generation stamp.
const GeneratorName = "agents"

// AgentsDirName is the repository-local configuration directory.
const AgentsDirName = ".agents"

// CoreAdapterID identifies the built-in adapter that owns shared surfaces.
const CoreAdapterID = "core"

// AgentsMDPath is the shared instructions file emitted by the core adapter.
const AgentsMDPath = "AGENTS.md"

// AgentsMDSurface is the logical surface name of the shared AGENTS.md contract.
const AgentsMDSurface = "shared:AGENTS.md"

// AgentsMDTemplate is the built-in template name rendered by the core adapter.
const AgentsMDTemplate = "AGENTS.md.tmpl"

// UpdateGoldensEnv must be set to 1 (or true) before `test adapters --update`
// is allowed to overwrite golden fixture trees.
const UpdateGoldensEnv = "AGENTS_UPDATE_GOLDENS"

// GitignoreBlockBegin and GitignoreBlockEnd delimit the managed section of
// the repository root .gitignore.
const (
	GitignoreBlockBegin = "# BEGIN agents (generated)"
	GitignoreBlockEnd   = "# END agents"
)
