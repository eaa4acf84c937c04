package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

// statusReport is the machine-readable form of `agents status`.
type statusReport struct {
	Mode          string            `json:"mode"`
	Policy        string            `json:"policy"`
	Profile       string            `json:"profile,omitempty"`
	Backend       model.BackendKind `json:"backend"`
	ScopesMatched []string          `json:"scopes_matched"`
	Skills        []string          `json:"skills"`
	Snippets      []string          `json:"snippets"`
	Adapters      []string          `json:"adapters"`
	SchemasValid  bool              `json:"schemas_valid"`
	SchemaError   string            `json:"schema_error,omitempty"`
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdStatus(ctx)
		},
	}
}

func cmdStatus(ctx *appContext) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{RepoRoot: ctx.RepoRoot})
	if err != nil {
		return ioError(err)
	}

	adapters := make([]string, 0, len(cfg.Adapters))
	for id := range cfg.Adapters {
		adapters = append(adapters, id)
	}
	sort.Strings(adapters)

	scopeIDs := make([]string, 0, len(effective.ScopesMatched))
	for _, m := range effective.ScopesMatched {
		scopeIDs = append(scopeIDs, m.ID)
	}

	report := statusReport{
		Mode:          effective.ModeID,
		Policy:        effective.PolicyID,
		Profile:       effective.Profile,
		Backend:       effective.Backend,
		ScopesMatched: scopeIDs,
		Skills:        effective.SkillIDsEnabled,
		Snippets:      effective.SnippetIDsIncluded,
		Adapters:      adapters,
		SchemasValid:  true,
	}

	// Schema validation is best-effort inside status.
	if serr := schemas.ValidateRepoConfig(ctx.RepoRoot, cfg); serr != nil {
		report.SchemasValid = false
		report.SchemaError = serr.Error()
	}

	if ctx.JSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return ioError(err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Print(console.RenderKeyValues([][2]string{
		{"mode", report.Mode},
		{"policy", report.Policy},
		{"profile", orNone(report.Profile)},
		{"backend", string(report.Backend)},
		{"scopes", orNone(strings.Join(report.ScopesMatched, ", "))},
		{"skills", orNone(strings.Join(report.Skills, ", "))},
		{"snippets", orNone(strings.Join(report.Snippets, ", "))},
		{"adapters", orNone(strings.Join(report.Adapters, ", "))},
	}))

	if !report.SchemasValid {
		fmt.Println(console.FormatWarningMessage("schema validation failed: " + report.SchemaError))
	}
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
