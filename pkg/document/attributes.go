package document

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var defaultAttributesParser = &failoverAttributesParser{
	parsers: []attributesParser{
		&jsonAttributesParser{},
		&htmlAttributesParser{},
	},
}

// Attributes represents key-value pairs written after the language
// of a code fence, for example:
//
//	```python {"title": "main.py"}
type Attributes map[string]string

// ParseAttributes extracts and parses attributes from a fence info string.
// An info string without braces yields empty attributes.
func ParseAttributes(info []byte) (Attributes, error) {
	raw := extractAttributes(info)
	if len(raw) == 0 {
		return Attributes{}, nil
	}
	return defaultAttributesParser.Parse(raw)
}

type attributesParser interface {
	Parse([]byte) (Attributes, error)
}

// jsonAttributesParser parses all values as strings.
//
//	{ "key": "value", "hello": "world", "number": 2 }
type jsonAttributesParser struct{}

func (p *jsonAttributesParser) Parse(raw []byte) (Attributes, error) {
	parsed := make(map[string]interface{})
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.WithStack(err)
	}

	result := make(Attributes, len(parsed))

	for k, v := range parsed {
		if strVal, ok := v.(string); ok {
			result[k] = strVal
		} else if stringified, err := json.Marshal(v); err == nil {
			result[k] = string(stringified)
		}
	}

	return result, nil
}

// htmlAttributesParser parses HTML-like attributes.
//
//	{ key=value hello=world title="two words" }
type htmlAttributesParser struct{}

var htmlAttributeRe = regexp.MustCompile(`([\w-]+)=(?:"([^"]*)"|(\S*))`)

func (p *htmlAttributesParser) Parse(raw []byte) (Attributes, error) {
	inner := bytes.TrimSpace(bytes.TrimSuffix(bytes.TrimPrefix(raw, []byte{'{'}), []byte{'}'}))
	matches := htmlAttributeRe.FindAllSubmatch(inner, -1)
	if len(matches) == 0 && len(inner) > 0 {
		return nil, errors.Errorf("no attributes found in %q", inner)
	}
	result := make(Attributes, len(matches))
	for _, m := range matches {
		value := m[3]
		if m[2] != nil {
			value = m[2]
		}
		result[string(m[1])] = string(value)
	}
	return result, nil
}

// failoverAttributesParser tries parsers in order and returns
// the result of the first one that succeeds.
type failoverAttributesParser struct {
	parsers []attributesParser
}

func (p *failoverAttributesParser) Parse(raw []byte) (_ Attributes, finalErr error) {
	for _, parser := range p.parsers {
		attr, err := parser.Parse(raw)
		if err == nil {
			return attr, nil
		}
		finalErr = multierr.Append(finalErr, err)
	}
	return nil, finalErr
}

// extractAttributes returns the source between the first `{`
// and the first following `}`, braces included.
func extractAttributes(source []byte) []byte {
	start, stop := -1, -1

	for i := 0; i < len(source); i++ {
		if start == -1 && source[i] == '{' && i+1 < len(source) && source[i+1] != '}' {
			start = i + 1
		}
		if start != -1 && source[i] == '}' {
			stop = i
			break
		}
	}

	if start >= 0 && stop >= 0 {
		return bytes.TrimSpace(source[start-1 : stop+1])
	}

	return nil
}

// Option is a single `:key: value` directive option.
type Option struct {
	Key   string
	Value string
}

// Options keeps directive options in source order.
type Options []Option

func (o Options) Get(key string) (string, bool) {
	for _, opt := range o {
		if strings.EqualFold(opt.Key, key) {
			return opt.Value, true
		}
	}
	return "", false
}

func (o Options) Lookup(key string) string {
	v, _ := o.Get(key)
	return v
}

var optionLineRe = regexp.MustCompile(`^\s*:([A-Za-z][\w-]*):(?:\s+(.*?))?\s*$`)

// parseOptionLine parses a line of the form `:key: value`.
func parseOptionLine(line string) (Option, bool) {
	m := optionLineRe.FindStringSubmatch(line)
	if m == nil {
		return Option{}, false
	}
	return Option{Key: strings.ToLower(m[1]), Value: m[2]}, true
}

// splitOptions separates leading option lines from the rest of a
// directive body.
func splitOptions(body string) (Options, []string, string) {
	lines := strings.Split(body, "\n")
	var (
		options Options
		raw     []string
	)
	i := 0
	for ; i < len(lines); i++ {
		opt, ok := parseOptionLine(lines[i])
		if !ok {
			break
		}
		options = append(options, opt)
		raw = append(raw, strings.TrimSpace(lines[i]))
	}
	return options, raw, strings.Join(lines[i:], "\n")
}
