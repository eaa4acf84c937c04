package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

// compatEntry summarizes one adapter's projection and enforcement.
type compatEntry struct {
	AgentID          string            `json:"agent_id"`
	OutputPaths      []string          `json:"output_paths"`
	Surfaces         []string          `json:"surfaces"`
	BackendPreferred model.BackendKind `json:"backend_preferred"`
	BackendFallback  model.BackendKind `json:"backend_fallback"`
	Enforcement      enforcement       `json:"enforcement"`
	PolicyMapping    string            `json:"policy_mapping"`
	Limitations      []string          `json:"limitations"`
}

type enforcement struct {
	Filesystem string `json:"filesystem"`
	Network    string `json:"network"`
	Exec       string `json:"exec"`
}

func newCompatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compat",
		Short: "Show the adapter capability matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdCompat(ctx)
		},
	}
}

func cmdCompat(ctx *appContext) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	entries, err := buildCompatMatrix(cfg)
	if err != nil {
		return ioError(err)
	}

	if ctx.JSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return ioError(err)
		}
		fmt.Println(string(data))
		return nil
	}

	for i, entry := range entries {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(console.RenderKeyValues([][2]string{
			{"agent", entry.AgentID},
			{"outputs", orNone(strings.Join(entry.OutputPaths, ", "))},
			{"surfaces", orNone(strings.Join(entry.Surfaces, ", "))},
			{"backend", fmt.Sprintf("%s (fallback %s)", entry.BackendPreferred, entry.BackendFallback)},
			{"filesystem", entry.Enforcement.Filesystem},
			{"network", entry.Enforcement.Network},
			{"exec", entry.Enforcement.Exec},
			{"policy mapping", entry.PolicyMapping},
			{"limitations", orNone(strings.Join(entry.Limitations, "; "))},
		}))
	}
	return nil
}

func buildCompatMatrix(cfg *loadag.RepoConfig) ([]compatEntry, error) {
	agentIDs := append([]string(nil), cfg.Manifest.Enabled.Adapters...)
	sort.Strings(agentIDs)

	entries := make([]compatEntry, 0, len(agentIDs))
	for _, agentID := range agentIDs {
		adapter, ok := cfg.Adapters[agentID]
		if !ok {
			return nil, fmt.Errorf("missing adapter: %s", agentID)
		}

		paths := make([]string, 0, len(adapter.Outputs))
		surfaceSet := map[string]bool{}
		for _, out := range adapter.Outputs {
			paths = append(paths, out.Path)
			if out.Surface != "" {
				surfaceSet[out.Surface] = true
			}
		}
		sort.Strings(paths)
		surfaces := make([]string, 0, len(surfaceSet))
		for s := range surfaceSet {
			surfaces = append(surfaces, s)
		}
		sort.Strings(surfaces)

		policyMapping := "advisory"
		if adapter.CapabilityMapping != nil {
			policyMapping = "custom (capabilityMapping)"
		}

		limitations := knownLimitations(agentID)
		if lim := backendLimitation(adapter.BackendDefaults.Preferred); lim != "" {
			limitations = append(limitations, lim)
		}

		entries = append(entries, compatEntry{
			AgentID:          agentID,
			OutputPaths:      paths,
			Surfaces:         surfaces,
			BackendPreferred: adapter.BackendDefaults.Preferred,
			BackendFallback:  adapter.BackendDefaults.Fallback,
			Enforcement:      enforcementForBackend(adapter.BackendDefaults.Preferred),
			PolicyMapping:    policyMapping,
			Limitations:      limitations,
		})
	}
	return entries, nil
}

func knownLimitations(agentID string) []string {
	switch agentID {
	case "opencode":
		return []string{"requires opencode CLI installed"}
	case "claude":
		return []string{"requires claude CLI installed"}
	case "codex":
		return []string{"requires codex CLI installed"}
	case "cursor":
		return []string{"requires Cursor to consume .cursor rules"}
	case "copilot":
		return []string{"requires GitHub Copilot to read instructions"}
	case "core":
		return []string{"shared surfaces only"}
	}
	return nil
}

func enforcementForBackend(backend model.BackendKind) enforcement {
	switch backend {
	case model.BackendVfsContainer:
		return enforcement{
			Filesystem: "enforced via read-only mounts",
			Network:    "best-effort (container networking)",
			Exec:       "limited (advisory allow/deny)",
		}
	case model.BackendVfsMount:
		return enforcement{
			Filesystem: "copy-based workspace overlay",
			Network:    "advisory",
			Exec:       "advisory",
		}
	default:
		return enforcement{
			Filesystem: "not enforced (writes to repo)",
			Network:    "advisory",
			Exec:       "advisory",
		}
	}
}

func backendLimitation(backend model.BackendKind) string {
	switch backend {
	case model.BackendVfsContainer:
		return "requires container runtime for vfs_container"
	case model.BackendMaterialize:
		return "writes generated outputs into the repo"
	case model.BackendVfsMount:
		return "vfs_mount uses a temporary workspace copy"
	}
	return ""
}
