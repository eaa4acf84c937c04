// Package cli implements the agents command set on top of the core
// packages. Errors carry a category that maps onto process exit codes.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/fsutil"
	"github.com/agentsfolder/agents-cli/pkg/loadag"
	"github.com/agentsfolder/agents-cli/pkg/model"
	"github.com/agentsfolder/agents-cli/pkg/schemas"
)

// ErrorCategory classifies an AppError for exit-code mapping.
type ErrorCategory int

const (
	CategoryInvalidArgs ErrorCategory = iota
	CategoryNotInitialized
	CategorySchemaInvalid
	CategoryIo
	CategoryConflict
	CategoryPolicyDenied
	CategoryExternalToolMissing
)

// ExitCode maps a category to the documented process exit code.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryInvalidArgs:
		return 2
	case CategoryNotInitialized:
		return 3
	case CategorySchemaInvalid:
		return 4
	default:
		return 5
	}
}

// AppError is the CLI-boundary error: a category, a message, and hint
// lines printed under it.
type AppError struct {
	Category ErrorCategory
	Message  string
	Context  []string
}

func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s\n", e.Message)
	for _, line := range e.Context {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func notInitializedError(repoRoot string) *AppError {
	return &AppError{
		Category: CategoryNotInitialized,
		Message:  "repository is not initialized",
		Context: []string{
			fmt.Sprintf("missing required file: %s", filepath.Join(fsutil.AgentsDir(repoRoot), "manifest.yaml")),
			"hint: run `agents init`",
		},
	}
}

func ioError(err error) *AppError {
	return &AppError{Category: CategoryIo, Message: err.Error()}
}

func invalidArgs(message string, hints ...string) *AppError {
	return &AppError{Category: CategoryInvalidArgs, Message: message, Context: hints}
}

func schemaInvalidError(serr *schemas.SchemaInvalid) *AppError {
	ctx := []string{
		fmt.Sprintf("path: %s", serr.Path),
		fmt.Sprintf("schema: %s", serr.Schema),
	}
	if serr.Pointer != "" {
		ctx = append(ctx, fmt.Sprintf("pointer: %s", serr.Pointer))
	}
	ctx = append(ctx, serr.Message)
	if serr.Hint != "" {
		ctx = append(ctx, "hint: "+serr.Hint)
	}
	return &AppError{Category: CategorySchemaInvalid, Message: "schema validation failed", Context: ctx}
}

// appContext carries per-invocation settings resolved from global flags.
type appContext struct {
	RepoRoot string
	JSON     bool
	Verbose  bool
	Quiet    bool
}

// resolveRepoRoot discovers the repository root, honoring --repo.
func resolveRepoRoot(repoFlag string) (string, error) {
	if repoFlag != "" {
		abs, err := filepath.Abs(repoFlag)
		if err != nil {
			return "", invalidArgs(fmt.Sprintf("invalid --repo path: %v", err))
		}
		return abs, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", ioError(err)
	}
	root, err := fsutil.DiscoverRepoRoot(wd)
	if err != nil {
		return "", ioError(err)
	}
	return root, nil
}

// loadRepo loads the config, translating load failures into AppErrors.
func loadRepo(repoRoot string) (*loadag.RepoConfig, *loadag.Report, *AppError) {
	cfg, report, err := loadag.Load(repoRoot, loadag.Options{})
	if err != nil {
		var notInit *loadag.NotInitializedError
		if errors.As(err, &notInit) {
			return nil, nil, notInitializedError(repoRoot)
		}
		return nil, nil, ioError(err)
	}
	return cfg, report, nil
}

// parseBackendFlag converts a --backend value, empty meaning unset.
func parseBackendFlag(value string) (*model.BackendKind, *AppError) {
	if value == "" {
		return nil, nil
	}
	backend, err := model.ParseBackendKind(value)
	if err != nil {
		return nil, invalidArgs(err.Error(),
			"hint: valid backends are vfs_container, materialize, vfs_mount")
	}
	return &backend, nil
}

// selectBackend picks the backend for an agent: CLI flag, then manifest
// backends.byAgent, backends.default, defaults.backend, then the
// adapter's preferred backend.
func selectBackend(repo *loadag.RepoConfig, agentID string, cli *model.BackendKind) model.BackendKind {
	if cli != nil {
		return *cli
	}
	if backends := repo.Manifest.Backends; backends != nil {
		if b, ok := backends.ByAgent[agentID]; ok {
			return b
		}
		if backends.Default != nil {
			return *backends.Default
		}
	}
	if repo.Manifest.Defaults.Backend != nil {
		return *repo.Manifest.Defaults.Backend
	}
	if adapter, ok := repo.Adapters[agentID]; ok {
		return adapter.BackendDefaults.Preferred
	}
	return model.BackendVfsContainer
}
