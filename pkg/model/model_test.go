package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestYAML = `specVersion: "0.1"
defaults:
  mode: build
  policy: safe
  sharedSurfacesOwner: core
enabled:
  modes: [build]
  policies: [safe]
  skills: []
  adapters: [copilot]
resolution:
  enableUserOverlay: false
  onConflict: warn
backends:
  default: materialize
  byAgent:
    copilot: materialize
`

func TestManifestDecode(t *testing.T) {
	var m Manifest
	require.NoError(t, DecodeStrict([]byte(manifestYAML), &m))

	assert.Equal(t, "0.1", m.SpecVersion)
	assert.Equal(t, "build", m.Defaults.Mode)
	assert.Equal(t, "core", m.Defaults.SharedSurfacesOwner)
	assert.Equal(t, []string{"copilot"}, m.Enabled.Adapters)
	require.NotNil(t, m.Resolution)
	assert.Equal(t, OnConflictWarn, *m.Resolution.OnConflict)
	require.NotNil(t, m.Backends)
	assert.Equal(t, BackendMaterialize, *m.Backends.Default)
	assert.Equal(t, BackendMaterialize, m.Backends.ByAgent["copilot"])
}

func TestManifestRejectsUnknownFields(t *testing.T) {
	var m Manifest
	err := DecodeStrict([]byte(manifestYAML+"bogusField: 1\n"), &m)
	require.Error(t, err)
}

func TestBackendKindRejectsUnknown(t *testing.T) {
	var d Defaults
	err := DecodeStrict([]byte("mode: a\npolicy: b\nbackend: warp_drive\n"), &d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestAdapterOutputDefaults(t *testing.T) {
	var out AdapterOutput
	require.NoError(t, DecodeStrict([]byte(`path: out.md
renderer:
  type: template
  template: out.md.tmpl
`), &out))

	assert.Equal(t, WriteIfGenerated, out.WritePolicy.EffectiveMode())
	assert.Equal(t, DriftSha256, out.DriftDetection.EffectiveMethod())
	assert.Equal(t, StampComment, out.DriftDetection.EffectiveStamp())
}

func TestAdapterDecode(t *testing.T) {
	var a Adapter
	require.NoError(t, DecodeStrict([]byte(`agentId: copilot
version: "1"
backendDefaults:
  preferred: materialize
  fallback: materialize
outputs:
  - path: .github/copilot-instructions.md
    format: md
    collision: overwrite
    renderer:
      type: template
      template: instructions.md.tmpl
    writePolicy:
      mode: always
      gitignore: true
    driftDetection:
      method: sha256
      stamp: comment
`), &a))

	require.Len(t, a.Outputs, 1)
	out := a.Outputs[0]
	assert.Equal(t, FormatMd, *out.Format)
	assert.Equal(t, CollisionOverwrite, *out.Collision)
	assert.Equal(t, WriteAlways, out.WritePolicy.EffectiveMode())
	assert.True(t, out.WritePolicy.Gitignore)
}

func TestPolicyCapabilityDefaults(t *testing.T) {
	var p Policy
	require.NoError(t, DecodeStrict([]byte(`id: safe
description: default policy
capabilities:
  filesystem: {}
  exec:
    enabled: false
paths:
  redact: ["secrets/**"]
confirmations:
  requiredFor: [delete]
`), &p))

	assert.True(t, p.Capabilities.Filesystem.CanRead())
	assert.True(t, p.Capabilities.Filesystem.CanWrite())
	assert.False(t, p.Capabilities.Exec.IsEnabled())
	assert.True(t, p.Confirmations.Requires(ConfirmDelete))
	assert.False(t, p.Confirmations.Requires(ConfirmPush))
}

func TestSplitFrontmatter(t *testing.T) {
	fm, body, err := SplitFrontmatter("---\nid: build\nenableSkills: [fmt]\n---\n# Build mode\nbody text\n")
	require.NoError(t, err)
	require.NotNil(t, fm)
	assert.Equal(t, "build", fm.ID)
	assert.Equal(t, []string{"fmt"}, fm.EnableSkills)
	assert.Equal(t, "# Build mode\nbody text\n", body)
}

func TestSplitFrontmatterNone(t *testing.T) {
	fm, body, err := SplitFrontmatter("just a body\r\nwith crlf\r\n")
	require.NoError(t, err)
	assert.Nil(t, fm)
	assert.Equal(t, "just a body\nwith crlf\n", body)
}

func TestSplitFrontmatterUnterminated(t *testing.T) {
	_, _, err := SplitFrontmatter("---\nid: build\nno terminator\n")
	require.Error(t, err)
}

func TestSplitFrontmatterRejectsUnknownKeys(t *testing.T) {
	_, _, err := SplitFrontmatter("---\nid: build\nnotAField: 1\n---\nbody\n")
	require.Error(t, err)
}
