package cli

import (
	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/constants"
)

// NewRootCommand builds the agents command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           constants.CLIName,
		Short:         "Project agent-native configuration from .agents/",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Project agent-native configuration from .agents/ into
vendor-specific artifacts for coding assistants.

Common tasks:
  agents init                 # Scaffold .agents/ in this repository
  agents validate             # Check documents against their schemas
  agents preview --agent a    # Show what would be generated
  agents sync --agent a       # Write generated outputs
  agents diff                 # Compare plan against the working tree
  agents clean --dry-run      # Preview deletion of generated files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("repo", "", "Repository root (defaults to auto-discovery)")
	root.PersistentFlags().Bool("json", false, "Emit machine-readable output")
	root.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	root.PersistentFlags().BoolP("quiet", "q", false, "Quiet output")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newInitCommand(),
		newValidateCommand(),
		newStatusCommand(),
		newSetModeCommand(),
		newPreviewCommand(),
		newDiffCommand(),
		newSyncCommand(),
		newCleanCommand(),
		newDoctorCommand(),
		newExplainCommand(),
		newCompatCommand(),
		newTestCommand(),
		newImportCommand(),
		newRunCommand(),
	)
	return root
}

// contextFromCmd resolves the global flags into an appContext.
func contextFromCmd(cmd *cobra.Command) (*appContext, error) {
	repoFlag, _ := cmd.Flags().GetString("repo")
	jsonOut, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")
	quiet, _ := cmd.Flags().GetBool("quiet")

	repoRoot, err := resolveRepoRoot(repoFlag)
	if err != nil {
		return nil, err
	}
	return &appContext{
		RepoRoot: repoRoot,
		JSON:     jsonOut,
		Verbose:  verbose,
		Quiet:    quiet,
	}, nil
}
