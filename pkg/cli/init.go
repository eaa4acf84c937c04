package cli

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

var initLog = logger.New("cli:init")

//go:embed all:assets
var initAssets embed.FS

// presetFiles maps preset names to the asset subset they materialize.
var presetFiles = map[string][]string{
	"minimal": {
		"manifest.yaml",
		"prompts/base.md",
		"prompts/project.md",
		"modes/build.md",
		"policies/safe.yaml",
		"state/.gitignore",
	},
	"standard": nil, // everything under assets/
}

func newInitCommand() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a .agents/ tree in this repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdInit(ctx, preset)
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "standard", "Preset to scaffold (minimal, standard)")
	return cmd
}

func cmdInit(ctx *appContext, preset string) error {
	files, ok := presetFiles[preset]
	if !ok {
		return invalidArgs(fmt.Sprintf("unknown preset: %s", preset),
			"hint: valid presets are minimal, standard")
	}

	agentsDir := fsutil.AgentsDir(ctx.RepoRoot)
	manifestPath := filepath.Join(agentsDir, "manifest.yaml")
	if _, err := os.Stat(manifestPath); err == nil {
		return &AppError{
			Category: CategoryInvalidArgs,
			Message:  ".agents/ is already initialized",
			Context:  []string{fmt.Sprintf("manifest exists: %s", manifestPath)},
		}
	}

	if files == nil {
		all, err := listAssetFiles()
		if err != nil {
			return ioError(err)
		}
		files = all
	}

	for _, rel := range files {
		data, err := initAssets.ReadFile("assets/" + rel)
		if err != nil {
			return ioError(fmt.Errorf("reading embedded asset %s: %w", rel, err))
		}
		dest := filepath.Join(agentsDir, filepath.FromSlash(rel))
		if err := fsutil.AtomicWrite(dest, data); err != nil {
			return ioError(err)
		}
		initLog.Printf("wrote %s", dest)
		if !ctx.Quiet {
			fmt.Println(console.FormatSuccessMessage("create: " + filepath.ToSlash(filepath.Join(".agents", rel))))
		}
	}

	// Schema validation is fatal inside init.
	if serr := schemas.ValidateRepo(ctx.RepoRoot); serr != nil {
		return schemaInvalidError(serr)
	}

	if !ctx.Quiet {
		fmt.Println(console.FormatInfoMessage("initialized .agents/ (preset: " + preset + ")"))
	}
	return nil
}

func listAssetFiles() ([]string, error) {
	var out []string
	err := fs.WalkDir(initAssets, "assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			out = append(out, path[len("assets/"):])
		}
		return nil
	})
	return out, err
}
