package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

var runLog = logger.New("schemas:run")

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ValidateRepoConfig validates every loaded document against its schema
// kind. Mode frontmatter is serialized and validated against
// mode-frontmatter.schema.json. The first failure is returned.
func ValidateRepoConfig(repoRoot string, cfg *loadag.RepoConfig) *SchemaInvalid {
	store := NewStore(repoRoot)
	agentsDir := fsutil.AgentsDir(repoRoot)

	if err := validateYamlFile(store, KindManifest, filepath.Join(agentsDir, "manifest.yaml")); err != nil {
		return err
	}

	for _, id := range sortedKeys(cfg.Policies) {
		path := filepath.Join(agentsDir, "policies", id+".yaml")
		if isFile(path) {
			if err := validateYamlFile(store, KindPolicy, path); err != nil {
				return err
			}
		}
	}

	for _, id := range sortedKeys(cfg.SkillDirs) {
		path := filepath.Join(cfg.SkillDirs[id], "skill.yaml")
		if isFile(path) {
			if err := validateYamlFile(store, KindSkill, path); err != nil {
				return err
			}
		}
	}

	for _, id := range sortedKeys(cfg.Scopes) {
		path := filepath.Join(agentsDir, "scopes", id+".yaml")
		if isFile(path) {
			if err := validateYamlFile(store, KindScope, path); err != nil {
				return err
			}
		}
	}

	for _, id := range sortedKeys(cfg.Adapters) {
		path := filepath.Join(agentsDir, "adapters", cfg.Adapters[id].AgentID, "adapter.yaml")
		if isFile(path) {
			if err := validateYamlFile(store, KindAdapter, path); err != nil {
				return err
			}
		}
	}

	statePath := filepath.Join(agentsDir, "state", "state.yaml")
	if isFile(statePath) {
		if err := validateYamlFile(store, KindState, statePath); err != nil {
			return err
		}
	}

	for _, id := range sortedKeys(cfg.Modes) {
		path := filepath.Join(agentsDir, "modes", id+".md")
		if !isFile(path) {
			continue
		}
		text, err := fsutil.ReadString(path)
		if err != nil {
			return &SchemaInvalid{Path: path, Schema: KindModeFrontmatter.SchemaFileName(), Message: err.Error()}
		}
		fm, _, err := model.SplitFrontmatter(text)
		if err != nil {
			return &SchemaInvalid{Path: path, Schema: KindModeFrontmatter.SchemaFileName(), Message: err.Error()}
		}
		if fm == nil {
			continue
		}
		value, cerr := frontmatterToValue(fm)
		if cerr != nil {
			return &SchemaInvalid{Path: path, Schema: KindModeFrontmatter.SchemaFileName(), Message: cerr.Error()}
		}
		if err := store.ValidateValue(KindModeFrontmatter, path, value); err != nil {
			return err
		}
	}

	runLog.Print("schema validation passed")
	return nil
}

// ValidateRepo loads the repository config and validates it. Callers that
// already hold a RepoConfig should use ValidateRepoConfig.
func ValidateRepo(repoRoot string) *SchemaInvalid {
	cfg, _, err := loadag.Load(repoRoot, loadag.Options{})
	if err != nil {
		return &SchemaInvalid{Path: repoRoot, Schema: "", Message: err.Error()}
	}
	return ValidateRepoConfig(repoRoot, cfg)
}

func validateYamlFile(store *Store, kind SchemaKind, path string) *SchemaInvalid {
	text, err := fsutil.ReadString(path)
	if err != nil {
		return &SchemaInvalid{Path: path, Schema: kind.SchemaFileName(), Message: err.Error()}
	}
	value, err := YamlToValue(text)
	if err != nil {
		return &SchemaInvalid{Path: path, Schema: kind.SchemaFileName(), Message: err.Error()}
	}
	return store.ValidateValue(kind, path, value)
}

func frontmatterToValue(fm *model.ModeFrontmatter) (any, error) {
	data, err := json.Marshal(fm)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
