package document

import (
	"bytes"
	"encoding/json"
	stderrors "errors"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var ErrFrontmatterInvalid = stderrors.New("invalid frontmatter")

const (
	frontmatterFormatYAML = "yaml"
	frontmatterFormatJSON = "json"
	frontmatterFormatTOML = "toml"
)

// Frontmatter describes a lesson. All fields are optional.
type Frontmatter struct {
	Title       string   `yaml:"title" json:"title" toml:"title"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	Course      string   `yaml:"course,omitempty" json:"course,omitempty" toml:"course,omitempty"`
	Order       int      `yaml:"order,omitempty" json:"order,omitempty" toml:"order,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty" toml:"tags,omitempty"`

	format string
	raw    string
}

func (f *Frontmatter) Format() string {
	if f == nil {
		return ""
	}
	return f.format
}

func (f *Frontmatter) Raw() string {
	if f == nil {
		return ""
	}
	return f.raw
}

// parseFrontmatter decodes raw frontmatter. JSON is tried first because it
// is also valid YAML.
func parseFrontmatter(raw []byte, format string) (*Frontmatter, error) {
	f := &Frontmatter{raw: string(raw)}

	switch format {
	case frontmatterFormatTOML:
		if err := toml.Unmarshal(raw, f); err != nil {
			return nil, errors.Wrap(stderrors.Join(ErrFrontmatterInvalid, err), "failed to parse toml frontmatter")
		}
		f.format = frontmatterFormatTOML
	default:
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			if err := json.Unmarshal(trimmed, f); err == nil {
				f.format = frontmatterFormatJSON
				return f, nil
			}
		}
		if err := yaml.Unmarshal(raw, f); err != nil {
			return nil, errors.Wrap(stderrors.Join(ErrFrontmatterInvalid, err), "failed to parse yaml frontmatter")
		}
		f.format = frontmatterFormatYAML
	}

	return f, nil
}

// splitFrontmatter separates a leading `---` (YAML/JSON) or `+++` (TOML)
// block from the content. A fence that is never closed is a thematic break
// and the source is returned unchanged.
func splitFrontmatter(source []byte) (raw []byte, format string, content []byte, err error) {
	var fence []byte
	switch {
	case bytes.HasPrefix(source, []byte("---")):
		fence, format = []byte("---"), frontmatterFormatYAML
	case bytes.HasPrefix(source, []byte("+++")):
		fence, format = []byte("+++"), frontmatterFormatTOML
	default:
		return nil, "", source, nil
	}

	firstLineEnd := bytes.IndexByte(source, '\n')
	if firstLineEnd < 0 || len(bytes.TrimSpace(source[:firstLineEnd])) != len(fence) {
		// Something like "----" is a thematic break, not frontmatter.
		return nil, "", source, nil
	}

	rest := source[firstLineEnd+1:]
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		if lineEnd < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+lineEnd]
		}
		if bytes.Equal(bytes.TrimSpace(line), fence) {
			raw = rest[:offset]
			if lineEnd < 0 {
				return raw, format, nil, nil
			}
			return raw, format, rest[offset+lineEnd+1:], nil
		}
		if lineEnd < 0 {
			break
		}
		offset += lineEnd + 1
	}

	return nil, "", source, nil
}
