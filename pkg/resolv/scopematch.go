// Package resolv computes the EffectiveConfig for a target path by layering
// manifest defaults, matched scope overrides, persisted state, CLI
// overrides, and mode frontmatter in fixed precedence order.
package resolv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
)

var matchLog = logger.New("resolv:scopes")

// ScopeMatch records one matched scope with its ranking inputs.
type ScopeMatch struct {
	ID       string
	Score    int64
	Priority int64
}

// InvalidGlobError reports an applyTo pattern that failed to compile.
type InvalidGlobError struct {
	ScopeID string
	Glob    string
	Message string
}

func (e *InvalidGlobError) Error() string {
	return fmt.Sprintf("invalid glob in scope %s: %s: %s", e.ScopeID, e.Glob, e.Message)
}

// MatchScopes returns every scope whose applyTo globs match targetPath,
// ranked most specific first (score desc, priority desc, id asc).
func MatchScopes(cfg *loadag.RepoConfig, targetPath string) ([]ScopeMatch, error) {
	var matches []ScopeMatch

	for _, id := range sortedScopeIDs(cfg) {
		scope := cfg.Scopes[id]
		matched := false
		for _, pattern := range scope.ApplyTo {
			if !doublestar.ValidatePattern(pattern) {
				return nil, &InvalidGlobError{ScopeID: id, Glob: pattern, Message: "invalid pattern"}
			}
			ok, err := doublestar.Match(pattern, targetPath)
			if err != nil {
				return nil, &InvalidGlobError{ScopeID: id, Glob: pattern, Message: err.Error()}
			}
			if ok {
				matched = true
				break
			}
		}
		if matched {
			matches = append(matches, ScopeMatch{
				ID:       id,
				Score:    SpecificityScore(scope.ApplyTo),
				Priority: scope.Priority,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})

	matchLog.Printf("matched %d scopes for %q", len(matches), targetPath)
	return matches, nil
}

// SpecificityScore is the score of a scope: the max over its glob scores.
func SpecificityScore(patterns []string) int64 {
	var best int64
	for i, p := range patterns {
		s := scoreOne(p)
		if i == 0 || s > best {
			best = s
		}
	}
	return best
}

// scoreOne scores a single glob: 100 per segment plus literal characters,
// minus a wildcard penalty (5 per "**", 2 per single "*", 1 per "?").
func scoreOne(pattern string) int64 {
	var segments, literals, penalty int64

	for _, seg := range strings.Split(pattern, "/") {
		if seg == "" {
			continue
		}
		segments++

		doubles := int64(strings.Count(seg, "**"))
		singles := int64(strings.Count(seg, "*")) - 2*doubles
		penalty += 5*doubles + 2*singles + int64(strings.Count(seg, "?"))

		for _, c := range seg {
			if c != '*' && c != '?' {
				literals++
			}
		}
	}

	return segments*100 + literals - penalty
}

func sortedScopeIDs(cfg *loadag.RepoConfig) []string {
	ids := make([]string, 0, len(cfg.Scopes))
	for id := range cfg.Scopes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
