package cli

import (
	"fmt"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

func newSetModeCommand() *cobra.Command {
	var profile string

	cmd := &cobra.Command{
		Use:   "set-mode <mode>",
		Short: "Persist the active mode (and optional profile) to state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdSetMode(ctx, args[0], profile)
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "", "Profile to persist alongside the mode")
	return cmd
}

func cmdSetMode(ctx *appContext, mode, profile string) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	if _, ok := cfg.Modes[mode]; !ok {
		return invalidArgs(fmt.Sprintf("unknown mode: %s", mode),
			"hint: run `agents status` to see the loaded configuration")
	}
	if profile != "" {
		if _, ok := cfg.Profiles[profile]; !ok {
			return invalidArgs(fmt.Sprintf("unknown profile: %s", profile))
		}
	}

	state := model.State{Mode: mode, Profile: profile}
	if prev := cfg.State; prev != nil {
		state.Backend = prev.Backend
		state.Scopes = prev.Scopes
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return ioError(err)
	}

	stateDir := filepath.Join(fsutil.AgentsDir(ctx.RepoRoot), "state")
	if err := ensureStateGitignore(stateDir); err != nil {
		return ioError(err)
	}
	if err := fsutil.AtomicWrite(filepath.Join(stateDir, "state.yaml"), data); err != nil {
		return ioError(err)
	}

	if !ctx.Quiet {
		fmt.Println(console.FormatSuccessMessage("mode set to " + mode))
	}
	return nil
}

// ensureStateGitignore creates .agents/state/.gitignore so persisted state
// and explain records stay out of version control.
func ensureStateGitignore(stateDir string) error {
	return fsutil.AtomicWrite(filepath.Join(stateDir, ".gitignore"), []byte("state.yaml\nexplain/\n"))
}
