package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/lessonmark/lessonmark/pkg/renderer"
)

const (
	formatHTML = "html"
	formatJSON = "json"
)

func renderCmd() *cobra.Command {
	var (
		course string
		format string
	)

	cmd := cobra.Command{
		Use:   "render <file|-|https://...>",
		Short: "Render a lesson to HTML or a JSON element tree.",
		Long: `Render parses a lesson written in extended markdown and prints the rendered result.

Use "-" to read from stdin. Relative image paths are resolved against the
course given with --course. Diagnostics are printed to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatHTML && format != formatJSON {
				return errors.Errorf("unsupported format %q", format)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := getLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			data, err := readMarkdown(cmd, args[0])
			if err != nil {
				return err
			}

			result := newRenderer(cfg, logger).Render(data, course)

			if err := writeResult(cmd.OutOrStdout(), result, format); err != nil {
				return err
			}
			printDiagnostics(cmd.ErrOrStderr(), result)

			if result.Err != nil {
				return errors.Wrap(result.Err, "failed to render")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&course, "course", "", "Course slug used to resolve image paths.")
	cmd.Flags().StringVar(&format, "format", formatHTML, "Output format: html or json.")

	return &cmd
}

func writeResult(w io.Writer, result *renderer.Result, format string) error {
	if format == formatJSON {
		return result.WriteJSON(w)
	}

	if err := result.WriteHTML(w); err != nil {
		return errors.Wrap(err, "failed to write html")
	}
	_, err := fmt.Fprintln(w)
	return errors.WithStack(err)
}

func printDiagnostics(w io.Writer, result *renderer.Result) {
	warn := colorizer(w, color.FgYellow, color.Bold)
	faint := colorizer(w, color.Faint)

	for _, d := range result.Diagnostics {
		_, _ = warn.Fprint(w, "warning")
		_, _ = fmt.Fprintf(w, ": %s", d.Message)
		if d.Key != "" {
			_, _ = faint.Fprintf(w, " (%s at %s)", d.Node, d.Key)
		}
		_, _ = fmt.Fprintln(w)
	}
}
