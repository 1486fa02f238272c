// Package asset resolves image references in lesson content to paths
// under the course content root.
package asset

import (
	"path"
	"strings"
)

const (
	DefaultContentRoot = "/content/courses"
	imagesDir          = "images"
	genericImagePrefix = "/images/"
)

type Resolver struct {
	root string
}

func NewResolver(contentRoot string) *Resolver {
	root := strings.TrimRight(strings.TrimSpace(contentRoot), "/")
	if root == "" {
		root = DefaultContentRoot
	}
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return &Resolver{root: root}
}

func (r *Resolver) Root() string {
	return r.root
}

// Resolve applies, in order:
//  1. remote URLs (http, https, protocol relative, data) pass through;
//  2. paths under the content root pass through;
//  3. "/images/<rest>" moves under the course images directory;
//  4. other relative paths become "<root>/<course>/images/<basename>".
//
// Without a valid course slug rules 3 and 4 leave the input unchanged.
// Resolved paths never leave the course images directory.
func (r *Resolver) Resolve(raw, course string) string {
	src := strings.TrimSpace(raw)
	if src == "" || isRemote(src) {
		return src
	}

	if src == r.root || strings.HasPrefix(src, r.root+"/") {
		return src
	}

	course = strings.Trim(strings.TrimSpace(course), "/")
	if !validCourse(course) {
		return src
	}

	if strings.HasPrefix(src, genericImagePrefix) {
		// Cleaning against "/" drops leading ".." segments.
		rest := path.Clean("/" + strings.TrimPrefix(src, genericImagePrefix))
		if rest == "/" {
			return src
		}
		return path.Join(r.root, course, imagesDir, rest)
	}

	if strings.HasPrefix(src, "/") {
		// Absolute paths outside the known prefixes belong to the site.
		return src
	}

	name := path.Base(stripQuery(src))
	if name == "." || name == "/" {
		return src
	}
	return path.Join(r.root, course, imagesDir, name) + querySuffix(src)
}

func validCourse(course string) bool {
	if course == "" {
		return false
	}
	for _, segment := range strings.Split(course, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return false
		}
	}
	return true
}

func isRemote(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "//") ||
		strings.HasPrefix(lower, "data:")
}

func stripQuery(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		return src[:i]
	}
	return src
}

func querySuffix(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		return src[i:]
	}
	return ""
}
