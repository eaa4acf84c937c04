package model

import "fmt"

// The enum types below are closed: decoding any value outside the declared
// set fails, and switches over them should be exhaustive.

// BackendKind selects how generated outputs reach the agent process.
type BackendKind string

const (
	BackendVfsContainer BackendKind = "vfs_container"
	BackendMaterialize  BackendKind = "materialize"
	BackendVfsMount     BackendKind = "vfs_mount"
)

// ParseBackendKind validates a backend name.
func ParseBackendKind(s string) (BackendKind, error) {
	switch BackendKind(s) {
	case BackendVfsContainer, BackendMaterialize, BackendVfsMount:
		return BackendKind(s), nil
	}
	return "", fmt.Errorf("unknown backend: %q", s)
}

func (k *BackendKind) UnmarshalYAML(data []byte) error {
	v, err := ParseBackendKind(unquoteScalar(data))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// OutputFormat declares the nominal format of an adapter output.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatMd    OutputFormat = "md"
	FormatYaml  OutputFormat = "yaml"
	FormatJson  OutputFormat = "json"
	FormatJsonc OutputFormat = "jsonc"
)

func (f *OutputFormat) UnmarshalYAML(data []byte) error {
	switch v := OutputFormat(unquoteScalar(data)); v {
	case FormatText, FormatMd, FormatYaml, FormatJson, FormatJsonc:
		*f = v
		return nil
	default:
		return fmt.Errorf("unknown output format: %q", v)
	}
}

// CollisionPolicy resolves two outputs claiming the same logical surface.
type CollisionPolicy string

const (
	CollisionError       CollisionPolicy = "error"
	CollisionOverwrite   CollisionPolicy = "overwrite"
	CollisionMerge       CollisionPolicy = "merge"
	CollisionSharedOwner CollisionPolicy = "shared_owner"
)

func (c *CollisionPolicy) UnmarshalYAML(data []byte) error {
	switch v := CollisionPolicy(unquoteScalar(data)); v {
	case CollisionError, CollisionOverwrite, CollisionMerge, CollisionSharedOwner:
		*c = v
		return nil
	default:
		return fmt.Errorf("unknown collision policy: %q", v)
	}
}

// RendererType selects the rendering strategy for an output.
type RendererType string

const (
	RendererTemplate  RendererType = "template"
	RendererConcat    RendererType = "concat"
	RendererCopy      RendererType = "copy"
	RendererJsonMerge RendererType = "json_merge"
)

func (r *RendererType) UnmarshalYAML(data []byte) error {
	switch v := RendererType(unquoteScalar(data)); v {
	case RendererTemplate, RendererConcat, RendererCopy, RendererJsonMerge:
		*r = v
		return nil
	default:
		return fmt.Errorf("unknown renderer type: %q", v)
	}
}

// JsonMergeStrategy controls json_merge renderer behavior.
type JsonMergeStrategy string

const (
	MergeDeep    JsonMergeStrategy = "deep"
	MergeShallow JsonMergeStrategy = "shallow"
)

func (s *JsonMergeStrategy) UnmarshalYAML(data []byte) error {
	switch v := JsonMergeStrategy(unquoteScalar(data)); v {
	case MergeDeep, MergeShallow:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown jsonMergeStrategy: %q", v)
	}
}

// WriteMode governs whether an output may be written over existing files.
type WriteMode string

const (
	WriteAlways      WriteMode = "always"
	WriteIfGenerated WriteMode = "if_generated"
	WriteNever       WriteMode = "never"
)

func (m *WriteMode) UnmarshalYAML(data []byte) error {
	switch v := WriteMode(unquoteScalar(data)); v {
	case WriteAlways, WriteIfGenerated, WriteNever:
		*m = v
		return nil
	default:
		return fmt.Errorf("unknown write mode: %q", v)
	}
}

// DriftMethod selects how drift between planned and on-disk content is
// detected. mtime_only currently behaves as sha256; a recorded mtime
// baseline does not exist yet.
type DriftMethod string

const (
	DriftSha256    DriftMethod = "sha256"
	DriftMtimeOnly DriftMethod = "mtime_only"
	DriftNone      DriftMethod = "none"
)

func (m *DriftMethod) UnmarshalYAML(data []byte) error {
	switch v := DriftMethod(unquoteScalar(data)); v {
	case DriftSha256, DriftMtimeOnly, DriftNone:
		*m = v
		return nil
	default:
		return fmt.Errorf("unknown drift method: %q", v)
	}
}

// StampMethod selects how the generation stamp is embedded in a file.
type StampMethod string

const (
	StampComment     StampMethod = "comment"
	StampFrontmatter StampMethod = "frontmatter"
	StampJsonField   StampMethod = "json_field"
)

func (m *StampMethod) UnmarshalYAML(data []byte) error {
	switch v := StampMethod(unquoteScalar(data)); v {
	case StampComment, StampFrontmatter, StampJsonField:
		*m = v
		return nil
	default:
		return fmt.Errorf("unknown stamp method: %q", v)
	}
}

// OnConflict is parsed from the manifest resolution block. It has no
// planner effect yet.
type OnConflict string

const (
	OnConflictError OnConflict = "error"
	OnConflictWarn  OnConflict = "warn"
)

func (c *OnConflict) UnmarshalYAML(data []byte) error {
	switch v := OnConflict(unquoteScalar(data)); v {
	case OnConflictError, OnConflictWarn:
		*c = v
		return nil
	default:
		return fmt.Errorf("unknown onConflict: %q", v)
	}
}

// ConfirmationType names operations a policy may gate behind confirmation.
type ConfirmationType string

const (
	ConfirmDelete    ConfirmationType = "delete"
	ConfirmOverwrite ConfirmationType = "overwrite"
	ConfirmPublish   ConfirmationType = "publish"
	ConfirmDeploy    ConfirmationType = "deploy"
	ConfirmPush      ConfirmationType = "push"
	ConfirmRebase    ConfirmationType = "rebase"
)

func (c *ConfirmationType) UnmarshalYAML(data []byte) error {
	switch v := ConfirmationType(unquoteScalar(data)); v {
	case ConfirmDelete, ConfirmOverwrite, ConfirmPublish, ConfirmDeploy, ConfirmPush, ConfirmRebase:
		*c = v
		return nil
	default:
		return fmt.Errorf("unknown confirmation type: %q", v)
	}
}

// unquoteScalar strips surrounding quotes a YAML scalar may carry.
func unquoteScalar(data []byte) string {
	s := string(data)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
