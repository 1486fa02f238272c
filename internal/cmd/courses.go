package cmd

import (
	"strconv"

	"github.com/cli/go-gh/v2/pkg/tableprinter"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lessonmark/lessonmark/internal/config"
	"github.com/lessonmark/lessonmark/internal/content"
)

func coursesCmd() *cobra.Command {
	var importDir string

	cmd := cobra.Command{
		Use:     "courses [slug]",
		Aliases: []string{"ls"},
		Short:   "List courses or the units of a course.",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := getLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			store, err := openStore(cfg, content.WithLogger(logger))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if importDir != "" {
				db, ok := store.(*content.DBStore)
				if !ok {
					return errors.New("--import requires the sqlite content driver")
				}
				if err := db.Import(cmd.Context(), content.NewFileStore(importDir, content.WithLogger(logger))); err != nil {
					return errors.Wrap(err, "failed to import courses")
				}
			}

			w := cmd.OutOrStdout()
			table := tableprinter.New(w, isTerminal(w), 120)
			bold := colorizer(w, color.Bold)
			slugColor := tableprinter.WithColor(func(s string) string { return bold.Sprint(s) })

			if len(args) == 0 {
				courses, err := store.Courses(cmd.Context())
				if err != nil {
					return err
				}

				table.AddHeader([]string{"SLUG", "TITLE", "DESCRIPTION"})
				for _, c := range courses {
					table.AddField(c.Slug, slugColor)
					table.AddField(c.Title)
					table.AddField(c.Description)
					table.EndRow()
				}
				return errors.Wrap(table.Render(), "failed to render")
			}

			course, err := store.CourseSummary(cmd.Context(), args[0])
			if errors.Is(err, content.ErrNotFound) {
				return errors.Errorf("course %q not found", args[0])
			}
			if err != nil {
				return err
			}

			table.AddHeader([]string{"#", "UNIT", "TITLE"})
			for i, u := range course.Units {
				table.AddField(strconv.Itoa(i + 1))
				table.AddField(u.Slug, slugColor)
				table.AddField(u.Title)
				table.EndRow()
			}
			return errors.Wrap(table.Render(), "failed to render")
		},
	}

	cmd.Flags().StringVar(&importDir, "import", "", "Import courses from a directory into the sqlite store before listing.")

	return &cmd
}

func openStore(cfg *config.Config, opts ...content.Option) (content.Store, error) {
	c := cfg.Content
	if c.Driver == config.DriverFile {
		c.Dir = contentDir(cfg)
	}
	return content.Open(c, opts...)
}
