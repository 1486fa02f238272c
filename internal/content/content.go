// Package content provides access to courses and the markdown source of
// their units.
package content

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lessonmark/lessonmark/internal/config"
)

var ErrNotFound = stderrors.New("not found")

type Course struct {
	Slug        string `json:"slug" yaml:"slug" toml:"slug"`
	Title       string `json:"title" yaml:"title" toml:"title"`
	Description string `json:"description,omitempty" yaml:"description" toml:"description"`
	Order       int    `json:"order,omitempty" yaml:"order" toml:"order"`
	Units       []Unit `json:"units,omitempty" yaml:"units" toml:"units"`
}

// Unit is a single lesson of a course. File is relative to the course
// directory and only used by FileStore.
type Unit struct {
	Slug  string `json:"slug" yaml:"slug" toml:"slug"`
	Title string `json:"title" yaml:"title" toml:"title"`
	Order int    `json:"order,omitempty" yaml:"order" toml:"order"`
	File  string `json:"-" yaml:"file" toml:"file"`
}

type Lesson struct {
	Course string `json:"course"`
	Unit   Unit   `json:"unit"`
	Source []byte `json:"-"`
}

type Store interface {
	// Courses lists all courses without their units.
	Courses(ctx context.Context) ([]Course, error)
	CourseSummary(ctx context.Context, slug string) (*Course, error)
	Lesson(ctx context.Context, course, unit string) (*Lesson, error)
	Close() error
}

type Option func(*options)

type options struct {
	logger *zap.Logger
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open returns the store selected by cfg.Driver.
func Open(cfg config.ContentConfig, opts ...Option) (Store, error) {
	switch cfg.Driver {
	case config.DriverFile:
		return NewFileStore(cfg.Dir, opts...), nil
	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.DSN)
		if err != nil {
			return nil, err
		}
		store := NewDBStore(db, opts...)
		if err := store.Migrate(context.Background()); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, errors.Errorf("unknown content driver %q", cfg.Driver)
	}
}

func notFound(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func sortCourses(courses []Course) {
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Order != courses[j].Order {
			return courses[i].Order < courses[j].Order
		}
		return courses[i].Slug < courses[j].Slug
	})
}

func sortUnits(units []Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		if units[i].Order != units[j].Order {
			return units[i].Order < units[j].Order
		}
		return units[i].Slug < units[j].Slug
	})
}
