package content

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lessonmark/lessonmark/internal/config"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"go-basics/course.yaml": {Data: []byte(`title: Go Basics
description: First steps
order: 1
`)},
		"go-basics/02-loops.md": {Data: []byte("---\ntitle: Loops\norder: 2\n---\n# Loops\n")},
		"go-basics/01-intro.md": {Data: []byte("---\ntitle: Introduction\norder: 1\n---\n# Intro\n")},
		"go-basics/notes.txt":   {Data: []byte("ignored")},
		"python/course.toml": {Data: []byte(`title = "Python"
order = 2

[[units]]
slug = "hello"
title = "Hello"
file = "hello-world.md"

[[units]]
slug = "missing"
`)},
		"python/hello-world.md": {Data: []byte("print('hi')\n")},
		"drafts/readme.md":      {Data: []byte("# not a course")},
		".git/config":           {Data: []byte("")},
	}
}

func TestFileStore_Courses(t *testing.T) {
	store := NewFileStoreFS(testFS(), WithLogger(zaptest.NewLogger(t)))

	courses, err := store.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, "go-basics", courses[0].Slug)
	assert.Equal(t, "Go Basics", courses[0].Title)
	assert.Equal(t, "First steps", courses[0].Description)
	assert.Equal(t, "python", courses[1].Slug)
	assert.Empty(t, courses[1].Units)
}

func TestFileStore_CourseSummary(t *testing.T) {
	store := NewFileStoreFS(testFS())
	ctx := context.Background()

	t.Run("discovered units", func(t *testing.T) {
		course, err := store.CourseSummary(ctx, "go-basics")
		require.NoError(t, err)
		require.Len(t, course.Units, 2)
		assert.Equal(t, Unit{Slug: "01-intro", Title: "Introduction", Order: 1, File: "01-intro.md"}, course.Units[0])
		assert.Equal(t, "Loops", course.Units[1].Title)
	})

	t.Run("manifest units", func(t *testing.T) {
		course, err := store.CourseSummary(ctx, "python")
		require.NoError(t, err)
		require.Len(t, course.Units, 2)
		assert.Equal(t, "hello-world.md", course.Units[0].File)
		assert.Equal(t, Unit{Slug: "missing", Title: "missing", Order: 2, File: "missing.md"}, course.Units[1])
	})

	for _, slug := range []string{"drafts", "nope", "", "../etc", "go-basics/01-intro.md"} {
		t.Run("not found "+slug, func(t *testing.T) {
			_, err := store.CourseSummary(ctx, slug)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestFileStore_Lesson(t *testing.T) {
	store := NewFileStoreFS(testFS())
	ctx := context.Background()

	lesson, err := store.Lesson(ctx, "python", "hello")
	require.NoError(t, err)
	assert.Equal(t, "python", lesson.Course)
	assert.Equal(t, "Hello", lesson.Unit.Title)
	assert.Equal(t, "print('hi')\n", string(lesson.Source))

	lesson, err = store.Lesson(ctx, "go-basics", "02-loops")
	require.NoError(t, err)
	assert.Contains(t, string(lesson.Source), "# Loops")

	_, err = store.Lesson(ctx, "python", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Lesson(ctx, "python", "other")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Lesson(ctx, "ruby", "hello")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileStoreFS(testFS()).Courses(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen(t *testing.T) {
	store, err := Open(config.ContentConfig{Driver: config.DriverFile, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	courses, err := store.Courses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, courses)

	_, err = Open(config.ContentConfig{Driver: "redis"})
	assert.ErrorContains(t, err, `unknown content driver "redis"`)
}
