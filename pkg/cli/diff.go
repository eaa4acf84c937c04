package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/driftx"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

func newDiffCommand() *cobra.Command {
	var agent string
	var show bool

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare planned outputs against the working tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdDiff(ctx, agent, show)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Adapter to diff (default: all enabled)")
	cmd.Flags().BoolVar(&show, "show", false, "Print unified diffs")
	return cmd
}

func cmdDiff(ctx *appContext, agent string, show bool) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	if serr := schemas.ValidateRepoConfig(ctx.RepoRoot, cfg); serr != nil && !ctx.Quiet {
		fmt.Println(console.FormatWarningMessage(serr.Error()))
	}

	effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{RepoRoot: ctx.RepoRoot})
	if err != nil {
		return ioError(err)
	}

	var creates, updates, deletes, noops, conflicts int

	for _, agentID := range agentsToProcess(cfg, agent) {
		res, err := outputs.Plan(cfg, effective, agentID)
		if err != nil {
			return ioError(err)
		}

		report, err := driftx.DiffPlan(ctx.RepoRoot, &res.Plan)
		if err != nil {
			return ioError(err)
		}

		stale, err := driftx.StaleGenerated(ctx.RepoRoot, &res.Plan)
		if err != nil {
			return ioError(err)
		}
		report.Entries = append(report.Entries, stale...)

		for _, entry := range report.Entries {
			label := ""
			switch entry.Kind {
			case driftx.DiffCreate:
				creates++
				label = "CREATE"
			case driftx.DiffUpdate:
				updates++
				label = "UPDATE"
			case driftx.DiffDelete:
				deletes++
				label = "DELETE"
			case driftx.DiffNoop:
				noops++
				label = "NOOP"
			case driftx.DiffUnmanagedExists:
				conflicts++
				label = "CONFLICT(unmanaged)"
			case driftx.DiffDrifted:
				conflicts++
				label = "CONFLICT(drifted)"
			}

			fmt.Printf("%s: %s\n", label, entry.Path)
			if show && entry.UnifiedDiff != "" {
				fmt.Print(entry.UnifiedDiff)
			}
		}
	}

	fmt.Printf("changes: create=%d update=%d delete=%d noop=%d conflict=%d\n",
		creates, updates, deletes, noops, conflicts)
	return nil
}
