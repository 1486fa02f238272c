package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver("")

	testCases := []struct {
		name     string
		raw      string
		course   string
		expected string
	}{
		{"https", "https://cdn/x.png", "python-basics", "https://cdn/x.png"},
		{"http", "HTTP://cdn/x.png", "python-basics", "HTTP://cdn/x.png"},
		{"protocol-relative", "//cdn/x.png", "python-basics", "//cdn/x.png"},
		{"data", "data:image/png;base64,AAAA", "python-basics", "data:image/png;base64,AAAA"},
		{"content-root", "/content/courses/python-basics/images/y.png", "python-basics", "/content/courses/python-basics/images/y.png"},
		{"other-course", "/content/courses/go/images/y.png", "python-basics", "/content/courses/go/images/y.png"},
		{"generic-images", "/images/z.png", "python-basics", "/content/courses/python-basics/images/z.png"},
		{"generic-images-nested", "/images/ch1/z.png", "python-basics", "/content/courses/python-basics/images/ch1/z.png"},
		{"bare-filename", "diagram.png", "python-basics", "/content/courses/python-basics/images/diagram.png"},
		{"relative-dir", "../assets/diagram.png", "python-basics", "/content/courses/python-basics/images/diagram.png"},
		{"query", "./diagram.png?v=2", "python-basics", "/content/courses/python-basics/images/diagram.png?v=2"},
		{"slug-slashes", "diagram.png", "/python-basics/", "/content/courses/python-basics/images/diagram.png"},
		{"other-absolute", "/static/logo.svg", "python-basics", "/static/logo.svg"},
		{"no-course-generic", "/images/z.png", "", "/images/z.png"},
		{"no-course-relative", "diagram.png", "", "diagram.png"},
		{"no-course-remote", "https://cdn/x.png", "", "https://cdn/x.png"},
		{"empty", "", "python-basics", ""},
		{"generic-images-parent", "/images/../../x.png", "python-basics", "/content/courses/python-basics/images/x.png"},
		{"generic-images-nested-parent", "/images/ch1/../../../x.png", "python-basics", "/content/courses/python-basics/images/x.png"},
		{"generic-images-only-parent", "/images/..", "python-basics", "/images/.."},
		{"course-parent", "diagram.png", "../admin", "diagram.png"},
		{"course-nested-parent", "/images/z.png", "go/../../etc", "/images/z.png"},
		{"course-dot", "diagram.png", ".", "diagram.png"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, r.Resolve(tc.raw, tc.course))
		})
	}
}

func TestNewResolver(t *testing.T) {
	assert.Equal(t, DefaultContentRoot, NewResolver("  ").Root())
	assert.Equal(t, "/lessons", NewResolver("lessons/").Root())

	r := NewResolver("/lessons")
	assert.Equal(t, "/lessons/go/images/a.png", r.Resolve("a.png", "go"))
	assert.Equal(t, "/lessons/go/images/a.png", r.Resolve("/lessons/go/images/a.png", "rust"))
	assert.Equal(t, "/lessonsx/a.png", r.Resolve("/lessonsx/a.png", "go"))
}
