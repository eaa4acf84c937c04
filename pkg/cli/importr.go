package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

// CanonicalFile is one converted artifact destined for .agents/.
type CanonicalFile struct {
	RelPath  string // relative to .agents/
	Contents []byte
}

// Importer converts a vendor's configuration into canonical artifacts.
type Importer interface {
	AgentID() string
	Discover(repoRoot, pathOverride string) (string, error)
	Convert(repoRoot, sourcePath string) ([]CanonicalFile, error)
}

func newImportCommand() *cobra.Command {
	var from, path string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Convert vendor configuration into .agents/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdImport(ctx, from, path)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source agent (supported: copilot)")
	cmd.Flags().StringVar(&path, "path", "", "Override the source file location")
	cmd.MarkFlagRequired("from")
	return cmd
}

func cmdImport(ctx *appContext, from, path string) error {
	var importer Importer
	switch strings.TrimSpace(from) {
	case "copilot":
		importer = &copilotImporter{}
	default:
		return invalidArgs("unsupported import source",
			fmt.Sprintf("from: %s", from),
			"hint: supported: copilot")
	}

	manifestPath := filepath.Join(fsutil.AgentsDir(ctx.RepoRoot), "manifest.yaml")
	if _, err := os.Stat(manifestPath); err == nil {
		return invalidArgs(".agents/ is already initialized",
			"hint: import targets a fresh repository; remove .agents/ first")
	}

	sourcePath, err := importer.Discover(ctx.RepoRoot, path)
	if err != nil {
		return invalidArgs(err.Error(),
			"hint: pass --path to point at the source file")
	}

	files, err := importer.Convert(ctx.RepoRoot, sourcePath)
	if err != nil {
		return ioError(err)
	}

	// Start from the standard preset, then layer the converted artifacts.
	if appErr := cmdInit(&appContext{RepoRoot: ctx.RepoRoot, Quiet: true}, "standard"); appErr != nil {
		return appErr
	}
	for _, f := range files {
		dest := filepath.Join(fsutil.AgentsDir(ctx.RepoRoot), filepath.FromSlash(f.RelPath))
		if err := fsutil.AtomicWrite(dest, f.Contents); err != nil {
			return ioError(err)
		}
		if !ctx.Quiet {
			fmt.Println(console.FormatSuccessMessage("import: .agents/" + f.RelPath))
		}
	}

	// Schema validation is fatal inside import.
	if serr := schemas.ValidateRepo(ctx.RepoRoot); serr != nil {
		return schemaInvalidError(serr)
	}

	if !ctx.Quiet {
		fmt.Println(console.FormatInfoMessage(fmt.Sprintf("imported %s configuration from %s", from, sourcePath)))
	}
	return nil
}

// copilotImporter converts .github/copilot-instructions.md into the
// project prompt and .github/instructions/*.instructions.md files into
// scopes with matching snippets.
type copilotImporter struct{}

func (c *copilotImporter) AgentID() string { return "copilot" }

func (c *copilotImporter) Discover(repoRoot, pathOverride string) (string, error) {
	p := pathOverride
	if p == "" {
		p = filepath.Join(repoRoot, ".github", "copilot-instructions.md")
	} else if !filepath.IsAbs(p) {
		p = filepath.Join(repoRoot, p)
	}
	if info, err := os.Stat(p); err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("copilot instructions file not found: %s", p)
	}
	return p, nil
}

func (c *copilotImporter) Convert(repoRoot, sourcePath string) ([]CanonicalFile, error) {
	content, err := fsutil.ReadString(sourcePath)
	if err != nil {
		return nil, err
	}

	files := []CanonicalFile{
		{RelPath: "prompts/project.md", Contents: []byte(fsutil.EnsureTrailingNewline(content))},
	}

	scopeFiles, err := c.convertInstructionFiles(repoRoot)
	if err != nil {
		return nil, err
	}
	return append(files, scopeFiles...), nil
}

// instructionFrontmatter is the copilot per-path instruction header.
type instructionFrontmatter struct {
	ApplyTo string `yaml:"applyTo,omitempty"`
}

func (c *copilotImporter) convertInstructionFiles(repoRoot string) ([]CanonicalFile, error) {
	dir := filepath.Join(repoRoot, ".github", "instructions")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".instructions.md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var files []CanonicalFile
	for _, name := range names {
		text, err := fsutil.ReadString(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		id := sanitizeImportID(strings.TrimSuffix(name, ".instructions.md"))
		applyTo, body := splitInstructionFrontmatter(text)
		if applyTo == "" {
			applyTo = "**"
		}

		scope := model.Scope{
			ID:      id,
			ApplyTo: []string{applyTo},
			Overrides: model.ScopeOverrides{
				IncludeSnippets: []string{id},
			},
		}
		scopeYaml, err := yaml.Marshal(scope)
		if err != nil {
			return nil, err
		}

		files = append(files,
			CanonicalFile{RelPath: "scopes/" + id + ".yaml", Contents: scopeYaml},
			CanonicalFile{RelPath: "prompts/snippets/" + id + ".md", Contents: []byte(fsutil.EnsureTrailingNewline(body))},
		)
	}
	return files, nil
}

// splitInstructionFrontmatter extracts an applyTo glob from an optional
// copilot instruction frontmatter block.
func splitInstructionFrontmatter(text string) (string, string) {
	fmText, body, ok := cutFrontmatterBlock(text)
	if !ok {
		return "", text
	}
	var fm instructionFrontmatter
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return "", text
	}
	return strings.TrimSpace(fm.ApplyTo), body
}

func cutFrontmatterBlock(text string) (string, string, bool) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return "", normalized, false
	}
	rest := normalized[4:]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return "", normalized, false
	}
	return rest[:end], rest[end+5:], true
}

func sanitizeImportID(id string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(id) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "imported"
	}
	return b.String()
}
