// Package prompts composes the effective prompt markdown from the base and
// project prompts plus included snippets, and compiles the policy's
// redaction globs.
package prompts

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/resolv"
)

var log = logger.New("prompts:compose")

// Snippet is one included snippet with its repo-relative source path.
type Snippet struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	MD   string `json:"md"`
}

// EffectivePrompts is the composition result.
type EffectivePrompts struct {
	BaseMD     string    `json:"base_md"`
	ProjectMD  string    `json:"project_md"`
	Snippets   []Snippet `json:"snippets"`
	ComposedMD string    `json:"composed_md"`
}

// Source records one contributing prompt file for source maps.
type Source struct {
	Path string // repo-relative, forward slashes
	Kind string // "base", "project", or "snippet"
}

// UnknownSnippetError reports a snippet id with no library entry.
type UnknownSnippetError struct {
	ID string
}

func (e *UnknownSnippetError) Error() string {
	return fmt.Sprintf("unknown snippet id: %s", e.ID)
}

// Compose builds base + project + snippets with exactly one blank line
// between non-empty sections, CRLF-normalized, single trailing newline.
// Snippets follow the sorted id order from the effective config.
func Compose(repo *loadag.RepoConfig, effective *resolv.EffectiveConfig) (*EffectivePrompts, []Source, error) {
	snippets := make([]Snippet, 0, len(effective.SnippetIDsIncluded))
	for _, id := range effective.SnippetIDsIncluded {
		md, ok := repo.Prompts.Snippets[id]
		if !ok {
			return nil, nil, &UnknownSnippetError{ID: id}
		}
		snippets = append(snippets, Snippet{
			ID:   id,
			Path: path.Join(".agents/prompts/snippets", id+".md"),
			MD:   md,
		})
	}

	base := normalize(repo.Prompts.BaseMD)
	project := normalize(repo.Prompts.ProjectMD)

	var out strings.Builder
	pushSection(&out, base)
	pushSection(&out, project)
	for _, s := range snippets {
		pushSection(&out, normalize(s.MD))
	}
	composed := ensureTrailingNewline(out.String())

	sources := []Source{
		{Path: ".agents/prompts/base.md", Kind: "base"},
		{Path: ".agents/prompts/project.md", Kind: "project"},
	}
	for _, s := range snippets {
		sources = append(sources, Source{Path: s.Path, Kind: "snippet"})
	}

	log.Printf("composed prompts: snippets=%d bytes=%d", len(snippets), len(composed))
	return &EffectivePrompts{
		BaseMD:     base,
		ProjectMD:  project,
		Snippets:   snippets,
		ComposedMD: composed,
	}, sources, nil
}

func pushSection(out *strings.Builder, section string) {
	if strings.TrimSpace(section) == "" {
		return
	}
	if out.Len() > 0 {
		// Exactly one blank line between sections.
		s := out.String()
		if !strings.HasSuffix(s, "\n\n") {
			if strings.HasSuffix(s, "\n") {
				out.WriteString("\n")
			} else {
				out.WriteString("\n\n")
			}
		}
	}
	out.WriteString(strings.TrimRight(section, "\n"))
	out.WriteString("\n")
}

func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func ensureTrailingNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// Redactor matches repo-relative paths against a policy's redact globs.
type Redactor struct {
	globs       []string
	placeholder string
}

// NewRedactor compiles the redact globs of a policy. Invalid globs fail
// eagerly.
func NewRedactor(policy *model.Policy) (*Redactor, error) {
	for _, g := range policy.Paths.Redact {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid redact glob: %s", g)
		}
	}
	return &Redactor{globs: policy.Paths.Redact, placeholder: "[REDACTED]"}, nil
}

// IsRedacted reports whether the repo-relative path matches any redact glob.
func (r *Redactor) IsRedacted(repoRelPath string) bool {
	for _, g := range r.globs {
		if ok, _ := doublestar.Match(g, repoRelPath); ok {
			return true
		}
	}
	return false
}

// Placeholder is the replacement text for redacted content.
func (r *Redactor) Placeholder() string { return r.placeholder }
