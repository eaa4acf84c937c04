package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate .agents/ documents against their schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdValidate(ctx)
		},
	}
	return cmd
}

func cmdValidate(ctx *appContext) error {
	cfg, report, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	for _, w := range report.Warnings {
		if !ctx.Quiet {
			fmt.Println(console.FormatWarningMessage(w.Message))
		}
	}

	if serr := schemas.ValidateRepoConfig(ctx.RepoRoot, cfg); serr != nil {
		fmt.Print(console.FormatValidationError(console.ValidationError{
			Position: console.Position{File: serr.Path},
			Kind:     "error",
			Message:  serr.Message,
			Hint:     serr.Hint,
		}))
		return schemaInvalidError(serr)
	}

	if !ctx.Quiet {
		fmt.Println(console.FormatSuccessMessage("all documents valid"))
	}
	return nil
}
