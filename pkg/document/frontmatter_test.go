package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFrontmatter(t *testing.T) {
	t.Run("WithoutFrontmatter", func(t *testing.T) {
		data := []byte("# Example\n\nA paragraph\n")
		raw, format, content, err := splitFrontmatter(data)
		require.NoError(t, err)
		assert.Nil(t, raw)
		assert.Equal(t, "", format)
		assert.Equal(t, string(data), string(content))
	})

	t.Run("ThematicBreak", func(t *testing.T) {
		data := []byte("----\n\ntext\n")
		_, format, content, err := splitFrontmatter(data)
		require.NoError(t, err)
		assert.Equal(t, "", format)
		assert.Equal(t, string(data), string(content))
	})

	t.Run("YAML", func(t *testing.T) {
		raw, format, content, err := splitFrontmatter([]byte("---\nprop1: val1\nprop2: val2\n---\n\n# Example\n"))
		require.NoError(t, err)
		assert.Equal(t, "prop1: val1\nprop2: val2\n", string(raw))
		assert.Equal(t, frontmatterFormatYAML, format)
		assert.Equal(t, "\n# Example\n", string(content))
	})

	t.Run("TOML", func(t *testing.T) {
		raw, format, content, err := splitFrontmatter([]byte("+++\nprop1 = \"val1\"\n+++\nbody"))
		require.NoError(t, err)
		assert.Equal(t, "prop1 = \"val1\"\n", string(raw))
		assert.Equal(t, frontmatterFormatTOML, format)
		assert.Equal(t, "body", string(content))
	})

	t.Run("OnlyFrontmatter", func(t *testing.T) {
		raw, _, content, err := splitFrontmatter([]byte("---\na: b\n---"))
		require.NoError(t, err)
		assert.Equal(t, "a: b\n", string(raw))
		assert.Empty(t, content)
	})

	t.Run("Unclosed", func(t *testing.T) {
		data := []byte("---\na: b\n")
		raw, format, content, err := splitFrontmatter(data)
		require.NoError(t, err)
		assert.Nil(t, raw)
		assert.Equal(t, "", format)
		assert.Equal(t, string(data), string(content))
	})
}

func TestParseFrontmatter(t *testing.T) {
	testCases := []struct {
		name   string
		raw    string
		format string
		want   Frontmatter
	}{
		{
			name:   "yaml",
			raw:    "title: Loops\norder: 3\n",
			format: frontmatterFormatYAML,
			want:   Frontmatter{Title: "Loops", Order: 3},
		},
		{
			name:   "json",
			raw:    `{"title": "Loops", "course": "python-basics", "tags": ["a", "b"]}`,
			format: frontmatterFormatJSON,
			want:   Frontmatter{Title: "Loops", Course: "python-basics", Tags: []string{"a", "b"}},
		},
		{
			name:   "toml",
			raw:    "title = \"Loops\"\ndescription = \"Iterate\"\n",
			format: frontmatterFormatTOML,
			want:   Frontmatter{Title: "Loops", Description: "Iterate"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			format := tc.format
			if format == frontmatterFormatJSON {
				// JSON shares the `---` fence with YAML.
				format = frontmatterFormatYAML
			}
			f, err := parseFrontmatter([]byte(tc.raw), format)
			require.NoError(t, err)
			assert.Equal(t, tc.format, f.Format())
			assert.Equal(t, tc.raw, f.Raw())
			assert.Equal(t, tc.want.Title, f.Title)
			assert.Equal(t, tc.want.Description, f.Description)
			assert.Equal(t, tc.want.Course, f.Course)
			assert.Equal(t, tc.want.Order, f.Order)
			assert.Equal(t, tc.want.Tags, f.Tags)
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		_, err := parseFrontmatter([]byte("title: [unclosed"), frontmatterFormatYAML)
		assert.ErrorIs(t, err, ErrFrontmatterInvalid)

		_, err = parseFrontmatter([]byte("title = "), frontmatterFormatTOML)
		assert.ErrorIs(t, err, ErrFrontmatterInvalid)
	})

	t.Run("NilAccessors", func(t *testing.T) {
		var f *Frontmatter
		assert.Equal(t, "", f.Format())
		assert.Equal(t, "", f.Raw())
	})
}
