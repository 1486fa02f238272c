package content

import (
	"context"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/lessonmark/lessonmark/pkg/document"
)

var manifestNames = []string{"course.yaml", "course.yml", "course.toml"}

// FileStore reads courses from a directory tree:
//
//	<slug>/course.yaml   (or course.toml)
//	<slug>/<unit>.md
//
// Units are taken from the manifest when it lists them, otherwise from the
// markdown files of the course directory ordered by their frontmatter.
type FileStore struct {
	fsys   fs.FS
	logger *zap.Logger
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string, opts ...Option) *FileStore {
	return NewFileStoreFS(os.DirFS(dir), opts...)
}

func NewFileStoreFS(fsys fs.FS, opts ...Option) *FileStore {
	o := applyOptions(opts)
	return &FileStore{fsys: fsys, logger: o.logger}
}

func (s *FileStore) Courses(ctx context.Context) ([]Course, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list courses")
	}

	var courses []Course
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		course, err := s.readManifest(entry.Name())
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("skipping directory without course manifest", zap.String("dir", entry.Name()))
			continue
		}
		if err != nil {
			return nil, err
		}
		course.Units = nil
		courses = append(courses, *course)
	}

	sortCourses(courses)
	return courses, nil
}

func (s *FileStore) CourseSummary(ctx context.Context, slug string) (*Course, error) {
	if !validSlug(slug) {
		return nil, notFound("course %q", slug)
	}
	course, err := s.readManifest(slug)
	if err != nil {
		return nil, err
	}
	if len(course.Units) == 0 {
		units, err := s.discoverUnits(ctx, slug)
		if err != nil {
			return nil, err
		}
		course.Units = units
	}
	return course, nil
}

func (s *FileStore) Lesson(ctx context.Context, course, unit string) (*Lesson, error) {
	summary, err := s.CourseSummary(ctx, course)
	if err != nil {
		return nil, err
	}

	for _, u := range summary.Units {
		if u.Slug != unit {
			continue
		}
		source, err := fs.ReadFile(s.fsys, path.Join(course, u.File))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound("unit %q of course %q", unit, course)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read unit %q", unit)
		}
		return &Lesson{Course: course, Unit: u, Source: source}, nil
	}

	return nil, notFound("unit %q of course %q", unit, course)
}

func (*FileStore) Close() error { return nil }

func (s *FileStore) readManifest(slug string) (*Course, error) {
	for _, name := range manifestNames {
		data, err := fs.ReadFile(s.fsys, path.Join(slug, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", name)
		}

		var course Course
		if path.Ext(name) == ".toml" {
			err = toml.Unmarshal(data, &course)
		} else {
			err = yaml.Unmarshal(data, &course)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse manifest of course %q", slug)
		}

		course.Slug = slug
		if course.Title == "" {
			course.Title = slug
		}
		for i := range course.Units {
			u := &course.Units[i]
			if u.File == "" {
				u.File = u.Slug + ".md"
			}
			if u.Order == 0 {
				u.Order = i + 1
			}
			if u.Title == "" {
				u.Title = u.Slug
			}
		}
		return &course, nil
	}
	return nil, notFound("course %q", slug)
}

func (s *FileStore) discoverUnits(ctx context.Context, slug string) ([]Unit, error) {
	entries, err := fs.ReadDir(s.fsys, slug)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list units of course %q", slug)
	}

	var units []Unit
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}

		unit := Unit{
			Slug: strings.TrimSuffix(entry.Name(), ".md"),
			File: entry.Name(),
		}
		unit.Title = unit.Slug

		data, err := fs.ReadFile(s.fsys, path.Join(slug, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read unit %q", unit.Slug)
		}
		fm, err := document.New(data).Frontmatter()
		if err != nil {
			s.logger.Warn("ignoring invalid frontmatter", zap.String("course", slug), zap.String("unit", unit.Slug), zap.Error(err))
		} else if fm != nil {
			if fm.Title != "" {
				unit.Title = fm.Title
			}
			unit.Order = fm.Order
		}
		units = append(units, unit)
	}

	sortUnits(units)
	return units, nil
}

func validSlug(slug string) bool {
	return slug != "" && fs.ValidPath(slug) && !strings.Contains(slug, "/") && !strings.HasPrefix(slug, ".")
}
