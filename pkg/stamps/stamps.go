// Package stamps embeds, parses, and strips machine-readable generation
// stamps, and classifies drift between planned and on-disk content.
//
// Contract laws, for every method and parseable content c:
//
//	strip(apply(c, m)) == (c, m)
//	apply(apply(c, m), m) == apply(c, m)
//	parse(apply(c, m)).Meta == m
//
// Hashing always normalizes CRLF to LF first.
package stamps

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentsfolder/agents-cli/pkg/logger"
	"github.com/agentsfolder/agents-cli/pkg/model"
)

var log = logger.New("stamps")

const (
	commentPrefix  = "<!-- @generated by agents: "
	commentSuffix  = " -->"
	frontmatterKey = "x_generated"
	jsonField      = "x_generated"
)

// StampMeta is the provenance record serialized into generated files.
type StampMeta struct {
	Generator          string            `json:"generator"`
	AdapterAgentID     string            `json:"adapterAgentId"`
	ManifestSpecVersion string           `json:"manifestSpecVersion"`
	Mode               string            `json:"mode"`
	Policy             string            `json:"policy"`
	Backend            model.BackendKind `json:"backend"`
	Profile            string            `json:"profile,omitempty"`
	ContentSha256      string            `json:"contentSha256"`
}

// Stamp pairs parsed metadata with the embedding method it was found in.
type Stamp struct {
	Method model.StampMethod
	Meta   StampMeta
}

// JsonFieldNotObjectError indicates json_field stamping was asked to stamp
// content whose top level is not a JSON object.
type JsonFieldNotObjectError struct{}

func (*JsonFieldNotObjectError) Error() string {
	return "json_field stamping requires a top-level object"
}

// NormalizeNewlines converts CRLF line endings to LF.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// ContentSha256 hashes newline-normalized content (without stamp) as
// lowercase hex.
func ContentSha256(contentWithoutStamp string) string {
	sum := sha256.Sum256([]byte(NormalizeNewlines(contentWithoutStamp)))
	return hex.EncodeToString(sum[:])
}

func encodeMeta(meta StampMeta) (string, error) {
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encoding stamp meta: %w", err)
	}
	return string(data), nil
}

func decodeMeta(jsonText string) (StampMeta, bool) {
	dec := json.NewDecoder(strings.NewReader(jsonText))
	dec.DisallowUnknownFields()
	var meta StampMeta
	if err := dec.Decode(&meta); err != nil {
		return StampMeta{}, false
	}
	return meta, true
}

// Parse finds a stamp in content, trying comment, frontmatter, then
// json_field embeddings. Returns nil when none parses.
func Parse(content string) *Stamp {
	if meta, ok := parseCommentStamp(content); ok {
		return &Stamp{Method: model.StampComment, Meta: meta}
	}
	if meta, ok := parseFrontmatterStamp(content); ok {
		return &Stamp{Method: model.StampFrontmatter, Meta: meta}
	}
	if _, meta, ok := stripJsonFieldStamp(content); ok {
		return &Stamp{Method: model.StampJsonField, Meta: meta}
	}
	return nil
}

// Strip removes a stamp from content, returning the unstamped content and
// the stamp when one was found.
func Strip(content string) (string, *Stamp) {
	if meta, ok := parseCommentStamp(content); ok {
		_, rest := splitFirstLine(content)
		return rest, &Stamp{Method: model.StampComment, Meta: meta}
	}
	if stripped, meta, ok := stripFrontmatterStamp(content); ok {
		return stripped, &Stamp{Method: model.StampFrontmatter, Meta: meta}
	}
	if stripped, meta, ok := stripJsonFieldStamp(content); ok {
		return stripped, &Stamp{Method: model.StampJsonField, Meta: meta}
	}
	return content, nil
}

// Apply embeds meta into unstamped content using the given method.
func Apply(contentWithoutStamp string, meta StampMeta, method model.StampMethod) (string, error) {
	metaJSON, err := encodeMeta(meta)
	if err != nil {
		return "", err
	}

	switch method {
	case model.StampComment:
		return commentPrefix + metaJSON + commentSuffix + "\n" + contentWithoutStamp, nil

	case model.StampFrontmatter:
		stampLine := frontmatterKey + ": " + metaJSON + "\n"
		if strings.HasPrefix(contentWithoutStamp, "---\n") {
			return "---\n" + stampLine + contentWithoutStamp[4:], nil
		}
		return "---\n" + stampLine + "---\n" + contentWithoutStamp, nil

	case model.StampJsonField:
		return applyJsonFieldStamp(contentWithoutStamp, metaJSON)
	}
	return "", fmt.Errorf("unknown stamp method: %q", method)
}

// StampRendered strips any existing stamp and applies a fresh one, so
// re-stamping is idempotent.
func StampRendered(content string, meta StampMeta, method model.StampMethod) (string, error) {
	stripped, _ := Strip(content)
	return Apply(stripped, meta, method)
}

func splitFirstLine(s string) (string, string) {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

func parseCommentStamp(content string) (StampMeta, bool) {
	line, _ := splitFirstLine(content)
	if !strings.HasPrefix(line, commentPrefix) || !strings.HasSuffix(line, commentSuffix) {
		return StampMeta{}, false
	}
	return decodeMeta(line[len(commentPrefix) : len(line)-len(commentSuffix)])
}

// frontmatterBounds returns the [start, end) byte range of the frontmatter
// body (between the opening "---\n" and the line before the closing "---").
func frontmatterBounds(content string) (int, int, bool) {
	if !strings.HasPrefix(content, "---\n") {
		return 0, 0, false
	}
	rest := content[4:]
	endRel := strings.Index(rest, "\n---\n")
	if endRel < 0 {
		return 0, 0, false
	}
	// Include the leading newline of the terminator so line iteration sees
	// complete lines.
	return 4, 4 + endRel + 1, true
}

func parseFrontmatterStamp(content string) (StampMeta, bool) {
	start, end, ok := frontmatterBounds(content)
	if !ok {
		return StampMeta{}, false
	}
	for _, line := range strings.Split(content[start:end], "\n") {
		if metaJSON, ok := frontmatterStampValue(line); ok {
			return decodeMeta(metaJSON)
		}
	}
	return StampMeta{}, false
}

func frontmatterStampValue(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	rest, found := strings.CutPrefix(trimmed, frontmatterKey)
	if !found {
		return "", false
	}
	rest = strings.TrimLeft(rest, " \t")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(rest[1:]), true
}

func stripFrontmatterStamp(content string) (string, StampMeta, bool) {
	start, end, ok := frontmatterBounds(content)
	if !ok {
		return "", StampMeta{}, false
	}

	lineStart := start
	for {
		lineEnd := lineStart
		if i := strings.IndexByte(content[lineStart:end], '\n'); i >= 0 {
			lineEnd = lineStart + i + 1
		} else {
			lineEnd = end
		}

		if metaJSON, found := frontmatterStampValue(content[lineStart:lineEnd]); found {
			meta, ok := decodeMeta(metaJSON)
			if !ok {
				return "", StampMeta{}, false
			}

			newFm := content[start:lineStart] + content[lineEnd:end]
			after := content[end+4:] // skip the "---\n" terminator

			// Drop the block entirely when the stamp was its only content.
			if strings.TrimSpace(newFm) == "" {
				return after, meta, true
			}
			return "---\n" + strings.TrimRight(newFm, "\n") + "\n---\n" + after, meta, true
		}

		if lineEnd >= end {
			break
		}
		lineStart = lineEnd
	}

	return "", StampMeta{}, false
}

func applyJsonFieldStamp(content, metaJSON string) (string, error) {
	b := []byte(content)

	openIdx, ok := skipWsAndJsoncComments(b, 0)
	if !ok || b[openIdx] != '{' {
		return "", &JsonFieldNotObjectError{}
	}
	afterOpen := openIdx + 1

	// Empty-object case: rewrite as a small pretty object.
	if i, ok := skipWsAndJsoncComments(b, afterOpen); ok && b[i] == '}' {
		return content[:openIdx] + "{\n  \"" + jsonField + "\": " + metaJSON + "\n}", nil
	}

	// Multi-line object: insert a new first property, reusing the first
	// existing field's indentation.
	if afterOpen < len(b) && b[afterOpen] == '\n' {
		j := afterOpen + 1
		for j < len(b) && (b[j] == ' ' || b[j] == '\t') {
			j++
		}
		indent := content[afterOpen+1 : j]
		return content[:afterOpen+1] + indent + "\"" + jsonField + "\": " + metaJSON + ",\n" + content[afterOpen+1:], nil
	}

	// Single-line object.
	rest := content[afterOpen:]
	needSpace := len(rest) > 0 && !isJSONSpace(rest[0])
	out := content[:afterOpen] + "\"" + jsonField + "\": " + metaJSON + ","
	if needSpace {
		out += " "
	}
	return out + rest, nil
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipWsAndJsoncComments advances past whitespace and JSONC // and /* */
// comments, returning the index of the next token.
func skipWsAndJsoncComments(b []byte, i int) (int, bool) {
	for i < len(b) {
		switch {
		case isJSONSpace(b[i]):
			i++
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			i += 2
			for i < len(b) && b[i] != '\n' {
				i++
			}
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			i += 2
			for i+1 < len(b) {
				if b[i] == '*' && b[i+1] == '/' {
					i += 2
					break
				}
				i++
			}
		default:
			return i, true
		}
	}
	return i, false
}

// stripJsonFieldStamp locates a top-level "x_generated" property with a
// minimal scanner and removes it, preserving the rest of the document
// byte-for-byte.
func stripJsonFieldStamp(content string) (string, StampMeta, bool) {
	b := []byte(content)

	i, ok := skipWsAndJsoncComments(b, 0)
	if !ok || b[i] != '{' {
		return "", StampMeta{}, false
	}

	depth := 0
	inStr := false
	esc := false
	keyStart, keyEnd := -1, -1

	for idx := i; idx < len(b); idx++ {
		c := b[idx]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
				if depth == 1 && keyStart >= 0 {
					keyEnd = idx + 1
					if content[keyStart:keyEnd] == `"`+jsonField+`"` {
						goto foundKey
					}
					keyStart = -1
				}
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
			if depth == 1 {
				keyStart = idx
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return "", StampMeta{}, false
			}
		}
	}
	return "", StampMeta{}, false

foundKey:
	// Require a ':' followed by an object value.
	j := keyEnd
	for j < len(b) && isJSONSpace(b[j]) {
		j++
	}
	if j >= len(b) || b[j] != ':' {
		return "", StampMeta{}, false
	}
	j++
	for j < len(b) && isJSONSpace(b[j]) {
		j++
	}
	if j >= len(b) || b[j] != '{' {
		return "", StampMeta{}, false
	}

	valStart := j
	valEnd := j
	depth = 0
	inStr = false
	esc = false
	for idx := j; idx < len(b); idx++ {
		c := b[idx]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				valEnd = idx + 1
				goto haveValue
			}
		}
	}
	return "", StampMeta{}, false

haveValue:
	meta, ok := decodeMeta(content[valStart:valEnd])
	if !ok {
		return "", StampMeta{}, false
	}

	// Widen removal to swallow one adjacent comma: a preceding one when the
	// stamp is a later property, a trailing one when it is first.
	rmStart := keyStart
	for rmStart > 0 {
		prev := b[rmStart-1]
		if prev == ',' {
			rmStart--
			break
		}
		if !isJSONSpace(prev) {
			break
		}
		rmStart--
	}

	rmEnd := valEnd
	for rmEnd < len(b) {
		c := b[rmEnd]
		if c == ',' {
			rmEnd++
			break
		}
		if !isJSONSpace(c) {
			break
		}
		rmEnd++
	}

	log.Printf("stripped json_field stamp (bytes %d..%d)", rmStart, rmEnd)
	return content[:rmStart] + content[rmEnd:], meta, true
}
