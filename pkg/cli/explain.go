package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentsfolder/agents-cli/pkg/console"
	"github.com/agentsfolder/agents-cli/pkg/explain"
	"github.com/agentsfolder/agents-cli/pkg/fsutil"
)

func newExplainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <path>",
		Short: "Explain how a generated file was produced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := contextFromCmd(cmd)
			if err != nil {
				return err
			}
			return cmdExplain(ctx, args[0])
		},
	}
}

func cmdExplain(ctx *appContext, target string) error {
	rp, err := fsutil.RepoRelPath(ctx.RepoRoot, target)
	if err != nil {
		return invalidArgs(fmt.Sprintf("invalid path: %v", err))
	}
	outputPath := rp.String()

	rec, err := explain.Lookup(ctx.RepoRoot, outputPath)
	if err != nil {
		return ioError(err)
	}

	if rec != nil {
		if ctx.JSON {
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return ioError(err)
			}
			fmt.Println(string(data))
			return nil
		}

		m := rec.Map
		fmt.Print(console.RenderKeyValues([][2]string{
			{"output", m.OutputPath},
			{"surface", orNone(m.Surface)},
			{"adapter", m.AdapterID},
			{"format", string(m.OutputFormat)},
			{"collision", string(m.Collision)},
			{"renderer", string(m.Renderer.Type)},
			{"template", orNone(m.Renderer.Template)},
			{"mode", m.Effective.ModeID},
			{"policy", m.Effective.PolicyID},
			{"backend", string(m.Effective.Backend)},
			{"profile", orNone(m.Effective.Profile)},
			{"scopes", orNone(strings.Join(m.Effective.ScopesMatched, ", "))},
			{"skills", orNone(strings.Join(m.Effective.SkillIDs, ", "))},
			{"snippets", orNone(strings.Join(m.Effective.SnippetIDs, ", "))},
			{"prompt sources", orNone(strings.Join(m.Effective.PromptSourcePaths, ", "))},
		}))
		return nil
	}

	// No persisted record: fall back to the file's embedded stamp.
	stamp, err := explain.FromStamp(ctx.RepoRoot, outputPath)
	if err != nil {
		return ioError(err)
	}
	if stamp == nil {
		return &AppError{
			Category: CategoryIo,
			Message:  fmt.Sprintf("no explain record or stamp found for %s", outputPath),
			Context:  []string{"hint: run `agents preview` or `agents sync` to record source maps"},
		}
	}

	if !ctx.Quiet {
		fmt.Println(console.FormatInfoMessage("no explain record; showing stamp metadata"))
	}
	fmt.Print(console.RenderKeyValues([][2]string{
		{"output", outputPath},
		{"stamp method", string(stamp.Method)},
		{"generator", stamp.Meta.Generator},
		{"adapter", stamp.Meta.AdapterAgentID},
		{"mode", stamp.Meta.Mode},
		{"policy", stamp.Meta.Policy},
		{"backend", string(stamp.Meta.Backend)},
		{"profile", orNone(stamp.Meta.Profile)},
		{"content sha256", stamp.Meta.ContentSha256},
	}))
	return nil
}
