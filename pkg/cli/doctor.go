package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/driftx"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

type doctorLevel string

const (
	doctorInfo    doctorLevel = "info"
	doctorWarning doctorLevel = "warning"
	doctorError   doctorLevel = "error"
)

type doctorItem struct {
	Level   doctorLevel
	Check   string
	Message string
	Context []string
}

func newDoctorCommand() *cobra.Command {
	var fix, ci bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, collision, and drift problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdDoctor(ctx, fix, ci)
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Apply safe fixes (state gitignore, missing schemas)")
	cmd.Flags().BoolVar(&ci, "ci", false, "Treat warnings as errors")
	return cmd
}

func cmdDoctor(ctx *appContext, fix, ci bool) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{RepoRoot: ctx.RepoRoot})
	if err != nil {
		return ioError(err)
	}

	var items []doctorItem
	items = append(items, doctorSchemaCheck(ctx, cfg, fix, ci)...)
	items = append(items, doctorPlanCheck(cfg, effective)...)
	items = append(items, doctorDriftCheck(ctx, cfg, effective)...)
	items = append(items, doctorStateCheck(ctx, fix)...)

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Check != items[j].Check {
			return items[i].Check < items[j].Check
		}
		return items[i].Message < items[j].Message
	})

	errors, warnings := 0, 0
	for _, item := range items {
		switch item.Level {
		case doctorError:
			errors++
			fmt.Println(console.FormatErrorMessage(item.Check + ": " + item.Message))
		case doctorWarning:
			warnings++
			fmt.Println(console.FormatWarningMessage(item.Check + ": " + item.Message))
		default:
			if !ctx.Quiet {
				fmt.Println(console.FormatInfoMessage(item.Check + ": " + item.Message))
			}
		}
		for _, c := range item.Context {
			fmt.Println("  " + c)
		}
	}

	fmt.Printf("doctor: errors=%d warnings=%d ci=%t fix=%t\n", errors, warnings, ci, fix)

	if errors > 0 || (ci && warnings > 0) {
		return &AppError{
			Category: CategorySchemaInvalid,
			Message:  "doctor found issues",
			Context:  []string{"hint: run `agents diff` or `agents validate`"},
		}
	}
	return nil
}

func doctorSchemaCheck(ctx *appContext, cfg *loadag.RepoConfig, fix, ci bool) []doctorItem {
	schemasDir := filepath.Join(fsutil.AgentsDir(ctx.RepoRoot), "schemas")
	if _, err := os.Stat(schemasDir); err != nil {
		if fix {
			if err := materializeEmbeddedSchemas(schemasDir); err != nil {
				return []doctorItem{{
					Level: doctorError, Check: "schemas",
					Message: "failed to materialize schemas",
					Context: []string{err.Error()},
				}}
			}
			return []doctorItem{{Level: doctorInfo, Check: "schemas", Message: "schemas materialized from embedded assets"}}
		}

		level := doctorWarning
		if ci {
			level = doctorError
		}
		return []doctorItem{{
			Level: level, Check: "schemas",
			Message: "schemas directory missing",
			Context: []string{"path: " + schemasDir, "hint: run `agents doctor --fix`"},
		}}
	}

	if serr := schemas.ValidateRepoConfig(ctx.RepoRoot, cfg); serr != nil {
		return []doctorItem{{
			Level: doctorError, Check: "schemas",
			Message: "schema invalid",
			Context: []string{"path: " + serr.Path, "schema: " + serr.Schema, serr.Message},
		}}
	}
	return []doctorItem{{Level: doctorInfo, Check: "schemas", Message: "schemas valid"}}
}

func doctorPlanCheck(cfg *loadag.RepoConfig, effective *resolv.EffectiveConfig) []doctorItem {
	var items []doctorItem

	agentIDs := append([]string(nil), cfg.Manifest.Enabled.Adapters...)
	sort.Strings(agentIDs)

	for _, agentID := range agentIDs {
		if _, err := outputs.Plan(cfg, effective, agentID); err != nil {
			items = append(items, doctorItem{
				Level: doctorError, Check: "plan",
				Message: fmt.Sprintf("adapter %s fails to plan", agentID),
				Context: []string{err.Error()},
			})
		}
	}

	if len(items) == 0 {
		items = append(items, doctorItem{Level: doctorInfo, Check: "plan", Message: "all enabled adapters plan cleanly"})
	}
	return items
}

func doctorDriftCheck(ctx *appContext, cfg *loadag.RepoConfig, effective *resolv.EffectiveConfig) []doctorItem {
	drifted, unmanaged := 0, 0

	for _, agentID := range cfg.Manifest.Enabled.Adapters {
		res, err := outputs.Plan(cfg, effective, agentID)
		if err != nil {
			continue
		}
		report, err := driftx.DiffPlan(ctx.RepoRoot, &res.Plan)
		if err != nil {
			continue
		}
		for _, entry := range report.Entries {
			switch entry.Kind {
			case driftx.DiffDrifted:
				drifted++
			case driftx.DiffUnmanagedExists:
				unmanaged++
			}
		}
	}

	if drifted == 0 && unmanaged == 0 {
		return []doctorItem{{Level: doctorInfo, Check: "drift", Message: "no drift detected"}}
	}
	return []doctorItem{{
		Level: doctorWarning, Check: "drift",
		Message: fmt.Sprintf("%d drifted, %d unmanaged planned paths", drifted, unmanaged),
		Context: []string{"hint: run `agents diff --show`"},
	}}
}

func doctorStateCheck(ctx *appContext, fix bool) []doctorItem {
	gitignorePath := filepath.Join(fsutil.AgentsDir(ctx.RepoRoot), "state", ".gitignore")
	if _, err := os.Stat(gitignorePath); err == nil {
		return []doctorItem{{Level: doctorInfo, Check: "state", Message: "state gitignore present"}}
	}

	if fix {
		if err := ensureStateGitignore(filepath.Dir(gitignorePath)); err != nil {
			return []doctorItem{{
				Level: doctorError, Check: "state",
				Message: "failed to write state gitignore",
				Context: []string{err.Error()},
			}}
		}
		return []doctorItem{{Level: doctorInfo, Check: "state", Message: "state gitignore created"}}
	}

	return []doctorItem{{
		Level: doctorWarning, Check: "state",
		Message: "state gitignore missing",
		Context: []string{"path: " + gitignorePath, "hint: run `agents doctor --fix`"},
	}}
}

func materializeEmbeddedSchemas(schemasDir string) error {
	names, err := initAssets.ReadDir("assets/schemas")
	if err != nil {
		return err
	}
	for _, entry := range names {
		if entry.IsDir() {
			continue
		}
		data, err := initAssets.ReadFile("assets/schemas/" + entry.Name())
		if err != nil {
			return err
		}
		if err := fsutil.AtomicWrite(filepath.Join(schemasDir, entry.Name()), data); err != nil {
			return err
		}
	}
	return nil
}
