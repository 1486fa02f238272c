package content

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"
)

type courseRecord struct {
	ID          uint   `gorm:"primaryKey"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Title       string `gorm:"not null"`
	Description string
	Position    int
	Units       []unitRecord `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE"`
}

func (courseRecord) TableName() string { return "courses" }

type unitRecord struct {
	ID       uint   `gorm:"primaryKey"`
	CourseID uint   `gorm:"uniqueIndex:idx_unit_course_slug;not null"`
	Slug     string `gorm:"uniqueIndex:idx_unit_course_slug;not null"`
	Title    string `gorm:"not null"`
	Position int
	Source   string
}

func (unitRecord) TableName() string { return "units" }

func (r courseRecord) course() Course {
	return Course{
		Slug:        r.Slug,
		Title:       r.Title,
		Description: r.Description,
		Order:       r.Position,
	}
}

func (r unitRecord) unit() Unit {
	return Unit{Slug: r.Slug, Title: r.Title, Order: r.Position}
}

// OpenSQLite opens a SQLite database for DBStore.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}
	return db, nil
}

// DBStore keeps courses and their unit sources in a SQL database.
type DBStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ Store = (*DBStore)(nil)

func NewDBStore(db *gorm.DB, opts ...Option) *DBStore {
	o := applyOptions(opts)
	return &DBStore{db: db, logger: o.logger}
}

func (s *DBStore) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(&courseRecord{}, &unitRecord{})
	return errors.Wrap(err, "failed to migrate content tables")
}

func (s *DBStore) Courses(ctx context.Context) ([]Course, error) {
	var records []courseRecord
	if err := s.db.WithContext(ctx).Order("position, slug").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list courses")
	}

	courses := make([]Course, 0, len(records))
	for _, r := range records {
		courses = append(courses, r.course())
	}
	return courses, nil
}

func (s *DBStore) CourseSummary(ctx context.Context, slug string) (*Course, error) {
	var record courseRecord
	err := s.db.WithContext(ctx).
		Preload("Units", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "course_id", "slug", "title", "position").Order("position, slug")
		}).
		Where("slug = ?", slug).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("course %q", slug)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get course %q", slug)
	}

	course := record.course()
	for _, u := range record.Units {
		course.Units = append(course.Units, u.unit())
	}
	return &course, nil
}

func (s *DBStore) Lesson(ctx context.Context, course, unit string) (*Lesson, error) {
	var record unitRecord
	err := s.db.WithContext(ctx).
		Joins("JOIN courses ON courses.id = units.course_id").
		Where("courses.slug = ? AND units.slug = ?", course, unit).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("unit %q of course %q", unit, course)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get unit %q", unit)
	}

	return &Lesson{
		Course: course,
		Unit:   record.unit(),
		Source: []byte(record.Source),
	}, nil
}

// Save creates or replaces a course together with its units. sources maps
// unit slugs to markdown.
func (s *DBStore) Save(ctx context.Context, course Course, sources map[string][]byte) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := courseRecord{
			Slug:        course.Slug,
			Title:       course.Title,
			Description: course.Description,
			Position:    course.Order,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "position"}),
		}).Create(&record).Error
		if err != nil {
			return errors.Wrapf(err, "failed to save course %q", course.Slug)
		}
		if err := tx.Where("slug = ?", course.Slug).First(&record).Error; err != nil {
			return errors.Wrapf(err, "failed to reload course %q", course.Slug)
		}

		if err := tx.Where("course_id = ?", record.ID).Delete(&unitRecord{}).Error; err != nil {
			return errors.Wrapf(err, "failed to clear units of %q", course.Slug)
		}

		units := make([]unitRecord, 0, len(course.Units))
		for i, u := range course.Units {
			position := u.Order
			if position == 0 {
				position = i + 1
			}
			units = append(units, unitRecord{
				CourseID: record.ID,
				Slug:     u.Slug,
				Title:    u.Title,
				Position: position,
				Source:   string(sources[u.Slug]),
			})
		}
		if len(units) > 0 {
			if err := tx.Create(&units).Error; err != nil {
				return errors.Wrapf(err, "failed to save units of %q", course.Slug)
			}
		}

		s.logger.Debug("saved course", zap.String("course", course.Slug), zap.Int("units", len(units)))
		return nil
	})
}

// Import copies every course of src into the database.
func (s *DBStore) Import(ctx context.Context, src Store) error {
	courses, err := src.Courses(ctx)
	if err != nil {
		return err
	}
	for _, c := range courses {
		summary, err := src.CourseSummary(ctx, c.Slug)
		if err != nil {
			return err
		}
		sources := make(map[string][]byte, len(summary.Units))
		for _, u := range summary.Units {
			lesson, err := src.Lesson(ctx, c.Slug, u.Slug)
			if err != nil {
				return err
			}
			sources[u.Slug] = lesson.Source
		}
		if err := s.Save(ctx, *summary, sources); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.Close())
}
