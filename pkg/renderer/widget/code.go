package widget

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const DefaultCopyReset = 2 * time.Second

// Clipboard receives copied source text.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the clipboard of the host.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return errors.WithStack(clipboard.WriteAll(text))
}

type CodeOption func(*Code)

func WithClipboard(c Clipboard) CodeOption {
	return func(code *Code) {
		code.clipboard = c
	}
}

func WithCopyReset(d time.Duration) CodeOption {
	return func(code *Code) {
		code.resetAfter = d
	}
}

func WithCaption(caption string) CodeOption {
	return func(code *Code) {
		code.Caption = caption
	}
}

func WithLineNumbers(enabled bool) CodeOption {
	return func(code *Code) {
		code.LineNumbers = enabled
	}
}

func WithCodeLogger(logger *zap.Logger) CodeOption {
	return func(code *Code) {
		code.logger = logger
	}
}

// Code is a copyable code block. Highlighting only affects display;
// Copy always writes Source unchanged.
type Code struct {
	Language    string
	Source      string
	Caption     string
	LineNumbers bool

	clipboard  Clipboard
	resetAfter time.Duration
	logger     *zap.Logger

	mu     sync.Mutex
	copied bool
	timer  *time.Timer
}

func NewCode(language, source string, opts ...CodeOption) *Code {
	c := &Code{
		Language:   language,
		Source:     source,
		clipboard:  SystemClipboard{},
		resetAfter: DefaultCopyReset,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Copy writes the source to the clipboard and marks the widget as copied
// until the reset delay passes. Copying again restarts the delay.
func (c *Code) Copy() error {
	if err := c.clipboard.WriteAll(c.Source); err != nil {
		c.logger.Warn("failed to copy code", zap.String("language", c.Language), zap.Error(err))
		return errors.Wrap(err, "failed to copy code")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.copied = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.resetAfter, c.reset)
	return nil
}

func (c *Code) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copied = false
	c.timer = nil
}

func (c *Code) Copied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copied
}

// Tokens splits the source for display. Unknown languages are guessed
// from the source and fall back to plain text.
func (c *Code) Tokens() ([]chroma.Token, error) {
	lexer := lexers.Get(c.Language)
	if lexer == nil {
		lexer = lexers.Analyse(c.Source)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, c.Source)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to tokenise %s", c.Language)
	}
	return iterator.Tokens(), nil
}

// TokenClass is the short CSS class chroma uses for the token type.
func TokenClass(t chroma.TokenType) string {
	for tt := t; tt != chroma.Background; tt = tt.Parent() {
		if class, ok := chroma.StandardTypes[tt]; ok && class != "" {
			return class
		}
		if tt.Parent() == tt {
			break
		}
	}
	return ""
}

// TokenColour returns the foreground colour of t in the named style,
// or "" when the style does not set one.
func TokenColour(styleName string, t chroma.TokenType) string {
	if styleName == "" {
		return ""
	}
	style := styles.Get(styleName)
	entry := style.Get(t)
	if !entry.Colour.IsSet() {
		return ""
	}
	return entry.Colour.String()
}

func (c *Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Language    string `json:"language"`
		Source      string `json:"source"`
		Caption     string `json:"caption,omitempty"`
		LineNumbers bool   `json:"lineNumbers,omitempty"`
		Copied      bool   `json:"copied"`
	}{NameCode, c.Language, c.Source, c.Caption, c.LineNumbers, c.Copied()})
}
