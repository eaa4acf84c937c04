package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/cleanup"
	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

func newCleanCommand() *cobra.Command {
	var agent string
	var dryRun, yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete generated files that are provably unchanged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdClean(ctx, agent, dryRun, yes)
		},
	}
	cmd.Flags().StringVar(&agent, "agent", "", "Only clean outputs of this adapter")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Enumerate deletions without removing anything")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion without prompting")
	return cmd
}

func cmdClean(ctx *appContext, agent string, dryRun, yes bool) error {
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

	// Policy-gated confirmation for real deletions.
	if !dryRun {
		policy, ok := cfg.Policies[effective.PolicyID]
		if !ok {
			return ioError(fmt.Errorf("missing policy %s", effective.PolicyID))
		}
		if policy.Confirmations.Requires(model.ConfirmDelete) && !yes {
			if !console.CanPrompt() {
				return &AppError{
					Category: CategoryPolicyDenied,
					Message:  "delete requires confirmation by policy",
					Context: []string{
						"hint: rerun with `--yes` to confirm delete",
						"hint: or use `--dry-run` to preview deletions",
					},
				}
			}
			confirmed, err := console.ConfirmAction("Delete generated files?", "Delete", "Cancel")
			if err != nil || !confirmed {
				return &AppError{
					Category: CategoryPolicyDenied,
					Message:  "delete not confirmed",
					Context:  []string{"hint: rerun with `--yes` to skip the prompt"},
				}
			}
		}
	}

	var agentIDs []string
	if agent != "" {
		agentIDs = []string{agent}
	} else {
		for id := range cfg.Adapters {
			agentIDs = append(agentIDs, id)
		}
		sort.Strings(agentIDs)
	}

	identify, err := cleanup.IdentifyDeletable(cfg, effective, agentIDs)
	if err != nil {
		return ioError(err)
	}

	deleteReport, err := cleanup.DeletePaths(ctx.RepoRoot, identify.Eligible, dryRun)
	if err != nil {
		return ioError(err)
	}

	verb := "delete"
	if dryRun {
		verb = "would-delete"
	}
	for _, p := range deleteReport.Deleted {
		fmt.Printf("%s: %s\n", verb, p)
	}
	for _, s := range identify.Skipped {
		fmt.Printf("skip: %s (%s)\n", s.Path, s.Reason)
	}
	if !dryRun {
		for _, d := range deleteReport.PrunedDirs {
			fmt.Printf("prune: %s\n", d)
		}
	}

	fmt.Printf("clean: deleted=%d skipped=%d dry_run=%t\n",
		len(deleteReport.Deleted), len(identify.Skipped), dryRun)
	return nil
}
