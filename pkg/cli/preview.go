package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/explain"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

func newPreviewCommand() *cobra.Command {
	var agent, backend, mode, profile string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render outputs without writing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdPreview(ctx, agent, backend, mode, profile)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Adapter to preview (default: all enabled)")
	cmd.Flags().StringVar(&backend, "backend", "", "Backend override")
	cmd.Flags().StringVar(&mode, "mode", "", "Mode override")
	cmd.Flags().StringVar(&profile, "profile", "", "Profile override")
	return cmd
}

func cmdPreview(ctx *appContext, agent, backend, mode, profile string) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	// Best-effort schema validation; preview still runs on failure.
	if serr := schemas.ValidateRepoConfig(ctx.RepoRoot, cfg); serr != nil && !ctx.Quiet {
		fmt.Println(console.FormatWarningMessage(serr.Error()))
	}

	backendKind, appErr := parseBackendFlag(backend)
	if appErr != nil {
		return appErr
	}

	for _, agentID := range agentsToProcess(cfg, agent) {
		effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{
			RepoRoot:        ctx.RepoRoot,
			OverrideMode:    mode,
			OverrideProfile: profile,
			OverrideBackend: backendKind,
		})
		if err != nil {
			return ioError(err)
		}

		res, err := outputs.Plan(cfg, effective, agentID)
		if err != nil {
			return ioError(err)
		}

		for i := range res.Plan.Outputs {
			out := &res.Plan.Outputs[i]
			rendered, err := outputs.Render(out)
			if err != nil {
				return &AppError{
					Category: CategoryIo,
					Message:  err.Error(),
					Context:  []string{"path: " + out.Path.String()},
				}
			}

			fmt.Println(console.FormatPathMessage(fmt.Sprintf("=== %s (%s) ===", out.Path.String(), agentID)))
			fmt.Print(rendered.ContentWithStamp)
		}

		if err := explain.PersistSourceMaps(ctx.RepoRoot, &res.Plan, res.Sources); err != nil {
			return ioError(err)
		}
	}
	return nil
}

// agentsToProcess returns the requested agent, or all enabled adapters in
// sorted order when none is given.
func agentsToProcess(cfg *loadag.RepoConfig, agent string) []string {
	if agent != "" {
		return []string{agent}
	}
	ids := append([]string(nil), cfg.Manifest.Enabled.Adapters...)
	sort.Strings(ids)
	return ids
}
