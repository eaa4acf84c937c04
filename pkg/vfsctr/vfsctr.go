// Package vfsctr assembles the container-mount invocation for the
// vfs_container backend. The host repository and generated outputs are
// mounted read-only; the container copies them into a writable /workspace
// before executing the agent command. Only the input contract lives here;
// the external process itself is out of scope.
package vfsctr

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/logger"
)

var log = logger.New("vfsctr")

// NotInstalledError means no container runtime binary was found.
type NotInstalledError struct {
	Binary string
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("container runtime not found: %s", e.Binary)
}

// Runtime wraps the container CLI binary.
type Runtime struct {
	Binary string
}

// NewRuntime uses the conventional docker binary.
func NewRuntime() *Runtime {
	return &Runtime{Binary: "docker"}
}

// CheckAvailable verifies the runtime binary exists on PATH.
func (r *Runtime) CheckAvailable() error {
	path, err := exec.LookPath(r.Binary)
	if err != nil {
		return &NotInstalledError{Binary: r.Binary}
	}
	log.Printf("container runtime: %s", path)
	return nil
}

// Invocation describes one vfs_container run.
//
// Runtime contract:
//   - Host repo is mounted read-only at /__agents_repo.
//   - Generated outputs are mounted read-only at /__agents_out.
//   - The container copies the repo into a writable /workspace and
//     overlays the outputs.
//   - The agent command executes with CWD /workspace.
type Invocation struct {
	RepoRoot   string
	OutputsDir string
	Image      string
	Cmd        []string
	Env        map[string]string

	DenyNetwork bool
	DenyWrites  bool
}

// Args builds the full argument list for the container CLI.
func (inv *Invocation) Args() []string {
	args := []string{
		"run", "--rm", "-i",
		"--workdir", "/workspace",
		"--mount", fmt.Sprintf("type=bind,source=%s,target=/__agents_repo,readonly", inv.RepoRoot),
		"--mount", fmt.Sprintf("type=bind,source=%s,target=/__agents_out,readonly", inv.OutputsDir),
	}

	if inv.DenyNetwork {
		args = append(args, "--network", "none")
	}

	envKeys := make([]string, 0, len(inv.Env))
	for k := range inv.Env {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, inv.Env[k]))
	}

	args = append(args, inv.Image)
	args = append(args, "sh", "-c", inv.bootstrapScript())
	return args
}

// bootstrapScript copies the read-only mounts into /workspace, applies the
// write policy, and execs the agent command.
func (inv *Invocation) bootstrapScript() string {
	script := "cp -a /__agents_repo/. /workspace/ && cp -a /__agents_out/. /workspace/"
	if inv.DenyWrites {
		script += " && chmod -R a-w /workspace"
	}
	script += " && exec " + shellJoin(inv.Cmd)
	return script
}

func shellJoin(cmd []string) string {
	parts := make([]string, len(cmd))
	for i, c := range cmd {
		parts[i] = shellQuote(c)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsFunc(s, func(c rune) bool {
		return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '-' || c == '_' || c == '.' || c == '/' || c == ':' || c == '=')
	}) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
