package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/outputs"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
	"github.com/agentsfolder/agents-cli/pkg/vfsctr"
	"github.com/agentsfolder/agents-cli/pkg/vfsmnt"
)

func newRunCommand() *cobra.Command {
	var mode, profile, backend string

	cmd := &cobra.Command{
		Use:   "run <agent> [-- args...]",
		Short: "Assemble the execution workspace for an agent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdRun(ctx, args[0], args[1:], mode, profile, backend)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "Mode override")
	cmd.Flags().StringVar(&profile, "profile", "", "Profile override")
	cmd.Flags().StringVar(&backend, "backend", "", "Backend override")
	return cmd
}

// cmdRun resolves, plans, and renders the agent's outputs into the chosen
// backend's workspace. The external agent process itself is out of scope:
// the assembled invocation (or workspace path) is reported instead.
func cmdRun(ctx *appContext, agentID string, passthrough []string, mode, profile, backend string) error {
	cfg, _, appErr := loadRepo(ctx.RepoRoot)
	if appErr != nil {
		return appErr
	}

	// Schema validation is fatal inside run.
	if serr := schemas.ValidateRepoConfig(ctx.RepoRoot, cfg); serr != nil {
		return schemaInvalidError(serr)
	}

	backendFlag, appErr := parseBackendFlag(backend)
	if appErr != nil {
		return appErr
	}
	selected := selectBackend(cfg, agentID, backendFlag)

	effective, err := resolv.NewResolver(cfg).Resolve(&resolv.Request{
		RepoRoot:        ctx.RepoRoot,
		OverrideMode:    mode,
		OverrideProfile: profile,
		OverrideBackend: &selected,
	})
	if err != nil {
		return ioError(err)
	}

	res, err := outputs.Plan(cfg, effective, agentID)
	if err != nil {
		return ioError(err)
	}

	overlays := make([]vfsmnt.OverlayFile, 0, len(res.Plan.Outputs))
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
		overlays = append(overlays, vfsmnt.OverlayFile{
			RelPath: out.Path.String(),
			Bytes:   []byte(rendered.ContentWithStamp),
		})
	}

	policy := cfg.Policies[effective.PolicyID]
	denyNetwork := policy.Capabilities.Network == nil || !policy.Capabilities.Network.Enabled
	denyWrites := policy.Capabilities.Filesystem != nil && !policy.Capabilities.Filesystem.CanWrite()

	switch selected {
	case model.BackendVfsMount:
		ws, err := vfsmnt.CreateWorkspace(ctx.RepoRoot, overlays, vfsmnt.Options{
			DenyWrites: denyWrites,
			Verbose:    ctx.Verbose,
		})
		if err != nil {
			return ioError(err)
		}
		fmt.Println(console.FormatSuccessMessage("workspace ready: " + ws.Path))
		fmt.Println(console.FormatInfoMessage("run your agent with CWD set to the workspace:"))
		fmt.Printf("  cd %s && %s\n", ws.Path, strings.Join(passthrough, " "))
		return nil

	case model.BackendVfsContainer:
		runtime := vfsctr.NewRuntime()
		if err := runtime.CheckAvailable(); err != nil {
			return &AppError{
				Category: CategoryExternalToolMissing,
				Message:  err.Error(),
				Context:  []string{"hint: install docker, or use `--backend vfs_mount`"},
			}
		}

		outputsDir, err := os.MkdirTemp("", "agents-outputs-")
		if err != nil {
			return ioError(err)
		}
		for _, overlay := range overlays {
			if err := fsutil.AtomicWrite(outputsDir+"/"+overlay.RelPath, overlay.Bytes); err != nil {
				return ioError(err)
			}
		}

		inv := &vfsctr.Invocation{
			RepoRoot:    ctx.RepoRoot,
			OutputsDir:  outputsDir,
			Image:       "ubuntu:24.04",
			Cmd:         passthrough,
			DenyNetwork: denyNetwork,
			DenyWrites:  denyWrites,
		}
		fmt.Println(console.FormatInfoMessage("container invocation:"))
		fmt.Printf("  %s %s\n", runtime.Binary, strings.Join(inv.Args(), " "))
		return nil

	case model.BackendMaterialize:
		return &AppError{
			Category: CategoryInvalidArgs,
			Message:  "run does not materialize into the repository",
			Context:  []string{"hint: use `agents sync` for the materialize backend"},
		}
	}
	return nil
}
