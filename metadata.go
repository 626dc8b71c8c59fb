package artificer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocumentMetadata carries the recognized document fields plus arbitrary
// extension fields in Extra. Timestamps stay strings: importers pass
// through whatever the source encoded rather than inventing a format.
type DocumentMetadata struct {
	Title     string
	Author    string
	CreatedAt string
	UpdatedAt string
	Tags      []string
	Source    string
	SourceID  string
	Extra     map[string]any
}

// NewMetadata builds a DocumentMetadata from a free-form field map, pulling
// recognized keys into their typed fields and keeping the rest in Extra.
// Tags are normalized whether the source encoded them as a list, a scalar,
// or a comma-separated string.
func NewMetadata(fields map[string]any) DocumentMetadata {
	var m DocumentMetadata
	for k, v := range fields {
		switch k {
		case "title":
			m.Title = stringField(v)
		case "author":
			m.Author = stringField(v)
		case "createdAt", "created", "date":
			m.CreatedAt = stringField(v)
		case "updatedAt", "updated", "modified":
			m.UpdatedAt = stringField(v)
		case "tags":
			m.Tags = normalizeTags(v)
		case "source":
			m.Source = stringField(v)
		case "sourceId":
			m.SourceID = stringField(v)
		default:
			if m.Extra == nil {
				m.Extra = map[string]any{}
			}
			m.Extra[k] = v
		}
	}
	return m
}

// normalizeTags flattens any of the tag encodings seen in the wild into a
// slice of trimmed non-empty strings.
func normalizeTags(v any) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	switch t := v.(type) {
	case nil:
		return nil
	case []string:
		for _, s := range t {
			add(s)
		}
	case []any:
		for _, e := range t {
			add(stringField(e))
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			add(s)
		}
	default:
		add(stringField(v))
	}
	return out
}

func stringField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func (m DocumentMetadata) isZero() bool {
	return m.Title == "" && m.Author == "" && m.CreatedAt == "" &&
		m.UpdatedAt == "" && len(m.Tags) == 0 && m.Source == "" &&
		m.SourceID == "" && len(m.Extra) == 0
}

// MarshalJSON flattens Extra beside the recognized keys. Recognized keys
// win on collision.
func (m DocumentMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.metadataMap())
}

// UnmarshalJSON is the inverse of MarshalJSON: recognized keys land in
// their typed fields, everything else in Extra.
func (m *DocumentMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = DocumentMetadata{}
	for k, v := range raw {
		switch k {
		case "title":
			m.Title = stringField(v)
		case "author":
			m.Author = stringField(v)
		case "createdAt":
			m.CreatedAt = stringField(v)
		case "updatedAt":
			m.UpdatedAt = stringField(v)
		case "tags":
			m.Tags = normalizeTags(v)
		case "source":
			m.Source = stringField(v)
		case "sourceId":
			m.SourceID = stringField(v)
		default:
			if m.Extra == nil {
				m.Extra = map[string]any{}
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// metadataMap renders the metadata as a flat map with the recognized keys
// overlaid on Extra. JSON marshalling and the markdown exporter's
// frontmatter emission both go through it.
func (m DocumentMetadata) metadataMap() map[string]any {
	out := make(map[string]any, len(m.Extra)+7)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Title != "" {
		out["title"] = m.Title
	}
	if m.Author != "" {
		out["author"] = m.Author
	}
	if m.CreatedAt != "" {
		out["createdAt"] = m.CreatedAt
	}
	if m.UpdatedAt != "" {
		out["updatedAt"] = m.UpdatedAt
	}
	if len(m.Tags) > 0 {
		out["tags"] = m.Tags
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	if m.SourceID != "" {
		out["sourceId"] = m.SourceID
	}
	return out
}

// parseYAMLFrontmatter parses the raw body of a frontmatter fence into a
// field map. Frontmatter is optional enrichment, never required structure:
// parse failures are logged and swallowed, returning nil.
func parseYAMLFrontmatter(raw string, logger *slog.Logger) map[string]any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(raw), &fields); err != nil {
		if logger != nil {
			logger.Warn("frontmatter parse failed, continuing without metadata", "error", err)
		}
		return nil
	}
	return fields
}
