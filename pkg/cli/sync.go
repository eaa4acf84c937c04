package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/explain"
	"github.com/agentsfolder/agents-cli/pkg/matwiz"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

func newSyncCommand() *cobra.Command {
	var agent, backend string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Write generated outputs into the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdSync(ctx, agent, backend)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Adapter to sync (default: all enabled)")
	cmd.Flags().StringVar(&backend, "backend", "", "Backend override")
	return cmd
}

func cmdSync(ctx *appContext, agent, backend string) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	if serr := schemas.ValidateRepoConfig(ctx.RepoRoot, cfg); serr != nil && !ctx.Quiet {
		fmt.Println(console.FormatWarningMessage(serr.Error()))
	}

	backendFlag, appErr := parseBackendFlag(backend)
	if appErr != nil {
		return appErr
	}

	for _, agentID := range agentsToProcess(cfg, agent) {
		selected := selectBackend(cfg, agentID, backendFlag)

		if selected != model.BackendMaterialize {
			return &AppError{
				Category: CategoryExternalToolMissing,
				Message:  fmt.Sprintf("sync requires the materialize backend (selected: %s)", selected),
				Context:  []string{"hint: pass `--backend materialize`, or use `agents run` for sandboxed backends"},
			}
		}

		effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{
			RepoRoot:        ctx.RepoRoot,
			OverrideBackend: &selected,
		})
		if err != nil {
			return ioError(err)
		}

		res, err := outputs.Plan(cfg, effective, agentID)
		if err != nil {
			return ioError(err)
		}

		session, err := matwiz.Prepare(ctx.RepoRoot, &res.Plan)
		if err != nil {
			return ioError(err)
		}

		rendered := make([]matwiz.RenderedOutput, 0, len(res.Plan.Outputs))
		for i := range res.Plan.Outputs {
			out := &res.Plan.Outputs[i]
			r, err := outputs.Render(out)
			if err != nil {
				return &AppError{
					Category: CategoryIo,
					Message:  err.Error(),
					Context:  []string{"path: " + out.Path.String()},
				}
			}
			rendered = append(rendered, matwiz.RenderedOutput{Output: out, Rendered: r})
		}

		report, err := matwiz.Apply(session, rendered)
		if err != nil {
			return ioError(err)
		}

		if ctx.Verbose {
			for _, p := range report.Written {
				fmt.Println(console.FormatSuccessMessage("write: " + p))
			}
			for _, p := range report.Skipped {
				fmt.Println(console.FormatInfoMessage("skip: " + p))
			}
		}

		if len(report.Conflicts) > 0 {
			detail := report.ConflictDetails[0]
			return &AppError{
				Category: CategoryConflict,
				Message:  detail.Message,
				Context:  hintLines(detail.Hints),
			}
		}

		if err := explain.PersistSourceMaps(ctx.RepoRoot, &res.Plan, res.Sources); err != nil {
			return ioError(err)
		}

		if !ctx.Quiet {
			fmt.Println(console.FormatSuccessMessage(
				fmt.Sprintf("sync %s: written=%d skipped=%d", agentID, len(report.Written), len(report.Skipped))))
		}
	}
	return nil
}

func hintLines(hints []string) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		out = append(out, "hint: "+h)
	}
	return out
}
