package model

import (
	"fmt"
	"strings"
)

// ModeFrontmatter is the YAML block a mode markdown file may start with.
type ModeFrontmatter struct {
	ID              string      `yaml:"id,omitempty" json:"id,omitempty"`
	Title           string      `yaml:"title,omitempty" json:"title,omitempty"`
	Policy          string      `yaml:"policy,omitempty" json:"policy,omitempty"`
	EnableSkills    []string    `yaml:"enableSkills,omitempty" json:"enableSkills,omitempty"`
	DisableSkills   []string    `yaml:"disableSkills,omitempty" json:"disableSkills,omitempty"`
	IncludeSnippets []string    `yaml:"includeSnippets,omitempty" json:"includeSnippets,omitempty"`
	ToolIntent      *ToolIntent `yaml:"toolIntent,omitempty" json:"toolIntent,omitempty"`
}

type ToolIntent struct {
	Allow []string `yaml:"allow,omitempty" json:"allow,omitempty"`
	Deny  []string `yaml:"deny,omitempty" json:"deny,omitempty"`
}

// ModeFile is a parsed mode document: optional frontmatter plus the body.
type ModeFile struct {
	Frontmatter *ModeFrontmatter `json:"frontmatter,omitempty"`
	Body        string           `json:"body"`
}

// SplitFrontmatter separates a leading YAML frontmatter block from the
// markdown body. Input is CRLF-normalized first. A document without a
// leading --- delimiter has no frontmatter.
func SplitFrontmatter(text string) (*ModeFrontmatter, string, error) {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	if !strings.HasPrefix(normalized, "---\n") {
		return nil, normalized, nil
	}

	rest := normalized[4:]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return nil, "", fmt.Errorf("frontmatter block is not terminated by ---")
	}

	fmText := rest[:end]
	body := rest[end+5:]

	var fm ModeFrontmatter
	if err := DecodeStrict([]byte(fmText), &fm); err != nil {
		return nil, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	return &fm, body, nil
}
