// Package loadag walks the .agents/ tree, parses every document into the
// typed model, injects built-in adapters, and enforces referential
// integrity before any plan runs.
package loadag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

var log = logger.New("loadag:loader")

// Options controls loader strictness.
type Options struct {
	// RequireSchemasDir makes a missing .agents/schemas an error instead of
	// a warning.
	RequireSchemasDir bool
}

// Load reads the whole .agents/ tree under repoRoot.
func Load(repoRoot string, opts Options) (*RepoConfig, *Report, error) {
	report := &Report{}
	agentsDir := fsutil.AgentsDir(repoRoot)

	manifestPath := filepath.Join(agentsDir, "manifest.yaml")
	if !isFile(manifestPath) {
		return nil, nil, &NotInitializedError{Path: manifestPath}
	}
	manifestText, err := fsutil.ReadString(manifestPath)
	if err != nil {
		return nil, nil, err
	}
	var manifest model.Manifest
	if err := model.DecodeStrict([]byte(manifestText), &manifest); err != nil {
		return nil, nil, &ParseError{Path: manifestPath, Message: err.Error()}
	}

	promptsDir := filepath.Join(agentsDir, "prompts")
	basePath := filepath.Join(promptsDir, "base.md")
	projectPath := filepath.Join(promptsDir, "project.md")
	if !isFile(basePath) {
		return nil, nil, &NotInitializedError{Path: basePath}
	}
	if !isFile(projectPath) {
		return nil, nil, &NotInitializedError{Path: projectPath}
	}
	baseMD, err := fsutil.ReadString(basePath)
	if err != nil {
		return nil, nil, err
	}
	projectMD, err := fsutil.ReadString(projectPath)
	if err != nil {
		return nil, nil, err
	}

	schemasDir := filepath.Join(agentsDir, "schemas")
	if !isDir(schemasDir) {
		if opts.RequireSchemasDir {
			return nil, nil, &NotInitializedError{Path: schemasDir}
		}
		report.Warn(schemasDir, "missing .agents/schemas; schema validation will not be available until `agents init`")
	}

	snippets, err := loadSnippets(filepath.Join(promptsDir, "snippets"))
	if err != nil {
		return nil, nil, err
	}

	policies, err := loadYamlDir(filepath.Join(agentsDir, "policies"), "policies", func(p *model.Policy) string { return p.ID })
	if err != nil {
		return nil, nil, err
	}

	skills, skillDirs, err := loadSkillsDir(filepath.Join(agentsDir, "skills"))
	if err != nil {
		return nil, nil, err
	}

	scopes, err := loadYamlDir(filepath.Join(agentsDir, "scopes"), "scopes", func(s *model.Scope) string { return s.ID })
	if err != nil {
		return nil, nil, err
	}

	modes, err := loadModesDir(filepath.Join(agentsDir, "modes"))
	if err != nil {
		return nil, nil, err
	}

	adapters, templateDirs, err := loadAdaptersDir(filepath.Join(agentsDir, "adapters"))
	if err != nil {
		return nil, nil, err
	}
	injectBuiltinAdapters(adapters)

	profiles, err := loadProfilesDir(filepath.Join(agentsDir, "profiles"))
	if err != nil {
		return nil, nil, err
	}

	state, err := loadOptionalState(filepath.Join(agentsDir, "state", "state.yaml"))
	if err != nil {
		return nil, nil, err
	}

	cfg := &RepoConfig{
		RepoRoot:            repoRoot,
		Manifest:            manifest,
		Policies:            policies,
		Skills:              skills,
		SkillDirs:           skillDirs,
		Scopes:              scopes,
		Modes:               modes,
		Adapters:            adapters,
		AdapterTemplateDirs: templateDirs,
		Profiles:            profiles,
		Prompts: PromptLibrary{
			BaseMD:    baseMD,
			ProjectMD: projectMD,
			Snippets:  snippets,
		},
		State: state,
	}

	if err := CheckReferentialIntegrity(cfg); err != nil {
		return nil, nil, err
	}

	log.Printf("loaded repo config: policies=%d skills=%d scopes=%d modes=%d adapters=%d",
		len(policies), len(skills), len(scopes), len(modes), len(adapters))
	return cfg, report, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// sortedEntries lists directory entries matching keep, sorted by name.
func sortedEntries(dir string, keep func(os.DirEntry) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if keep(e) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func loadSnippets(dir string) (map[string]string, error) {
	out := map[string]string{}
	if !isDir(dir) {
		return out, nil
	}
	names, err := sortedEntries(dir, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.HasSuffix(e.Name(), ".md")
	})
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		text, err := fsutil.ReadString(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out[strings.TrimSuffix(name, ".md")] = text
	}
	return out, nil
}

func loadYamlDir[T any](dir, kind string, idOf func(*T) string) (map[string]T, error) {
	out := map[string]T{}
	if !isDir(dir) {
		return out, nil
	}
	names, err := sortedEntries(dir, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml")
	})
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		text, err := fsutil.ReadString(path)
		if err != nil {
			return nil, err
		}
		var obj T
		if err := model.DecodeStrict([]byte(text), &obj); err != nil {
			return nil, &ParseError{Path: path, Message: err.Error()}
		}
		id := idOf(&obj)
		if _, exists := out[id]; exists {
			return nil, &DuplicateIDError{Kind: kind, ID: id}
		}
		out[id] = obj
	}
	return out, nil
}

func loadSkillsDir(dir string) (map[string]model.Skill, map[string]string, error) {
	skills := map[string]model.Skill{}
	dirs := map[string]string{}
	if !isDir(dir) {
		return skills, dirs, nil
	}
	names, err := sortedEntries(dir, func(e os.DirEntry) bool { return e.IsDir() })
	if err != nil {
		return nil, nil, err
	}
	for _, name := range names {
		skillDir := filepath.Join(dir, name)
		skillYaml := filepath.Join(skillDir, "skill.yaml")
		if !isFile(skillYaml) {
			continue
		}
		text, err := fsutil.ReadString(skillYaml)
		if err != nil {
			return nil, nil, err
		}
		var skill model.Skill
		if err := model.DecodeStrict([]byte(text), &skill); err != nil {
			return nil, nil, &ParseError{Path: skillYaml, Message: err.Error()}
		}
		if _, exists := skills[skill.ID]; exists {
			return nil, nil, &DuplicateIDError{Kind: "skills", ID: skill.ID}
		}
		dirs[skill.ID] = skillDir
		skills[skill.ID] = skill
	}
	return skills, dirs, nil
}

func loadModesDir(dir string) (map[string]model.ModeFile, error) {
	modes := map[string]model.ModeFile{}
	if !isDir(dir) {
		return modes, nil
	}
	names, err := sortedEntries(dir, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.HasSuffix(e.Name(), ".md")
	})
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		text, err := fsutil.ReadString(path)
		if err != nil {
			return nil, err
		}
		fm, body, err := model.SplitFrontmatter(text)
		if err != nil {
			return nil, &ParseError{Path: path, Message: err.Error()}
		}

		id := strings.TrimSuffix(name, ".md")
		if fm != nil && fm.ID != "" {
			id = fm.ID
		}
		if _, exists := modes[id]; exists {
			return nil, &DuplicateIDError{Kind: "modes", ID: id}
		}
		modes[id] = model.ModeFile{Frontmatter: fm, Body: body}
	}
	return modes, nil
}

func loadAdaptersDir(dir string) (map[string]model.Adapter, map[string]string, error) {
	adapters := map[string]model.Adapter{}
	templateDirs := map[string]string{}
	if !isDir(dir) {
		return adapters, templateDirs, nil
	}
	names, err := sortedEntries(dir, func(e os.DirEntry) bool { return e.IsDir() })
	if err != nil {
		return nil, nil, err
	}
	for _, name := range names {
		adapterDir := filepath.Join(dir, name)
		adapterYaml := filepath.Join(adapterDir, "adapter.yaml")
		if !isFile(adapterYaml) {
			continue
		}
		text, err := fsutil.ReadString(adapterYaml)
		if err != nil {
			return nil, nil, err
		}
		var adapter model.Adapter
		if err := model.DecodeStrict([]byte(text), &adapter); err != nil {
			return nil, nil, &ParseError{Path: adapterYaml, Message: err.Error()}
		}
		if _, exists := adapters[adapter.AgentID]; exists {
			return nil, nil, &DuplicateIDError{Kind: "adapters", ID: adapter.AgentID}
		}
		templateDirs[adapter.AgentID] = filepath.Join(adapterDir, "templates")
		adapters[adapter.AgentID] = adapter
	}
	return adapters, templateDirs, nil
}

func loadProfilesDir(dir string) (map[string]map[string]any, error) {
	out := map[string]map[string]any{}
	if !isDir(dir) {
		return out, nil
	}
	names, err := sortedEntries(dir, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml")
	})
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		text, err := fsutil.ReadString(path)
		if err != nil {
			return nil, err
		}
		// Profiles are opaque payloads; only "valid YAML mapping" is enforced.
		var v map[string]any
		if err := model.DecodeStrict([]byte(text), &v); err != nil {
			return nil, &ParseError{Path: path, Message: err.Error()}
		}
		id := strings.TrimSuffix(name, ".yaml")
		if _, exists := out[id]; exists {
			return nil, &DuplicateIDError{Kind: "profiles", ID: id}
		}
		out[id] = v
	}
	return out, nil
}

func loadOptionalState(path string) (*model.State, error) {
	if !isFile(path) {
		return nil, nil
	}
	text, err := fsutil.ReadString(path)
	if err != nil {
		return nil, err
	}
	var state model.State
	if err := model.DecodeStrict([]byte(text), &state); err != nil {
		return nil, &ParseError{Path: path, Message: err.Error()}
	}
	return &state, nil
}
