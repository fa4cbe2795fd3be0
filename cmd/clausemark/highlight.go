package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/sanitize"
)

var outputPath string

var highlightCmd = &cobra.Command{
	Use:   "highlight <file> <quote>",
	Short: "Write the HTML file with a quote highlighted",
	Long: `Highlight the passage that best matches a quote and write the resulting
HTML to stdout or to --output.

Examples:
  clausemark highlight policy.html "cookies help us" > marked.html
  clausemark highlight -o marked.html policy.html "cookies help us"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if outputPath != "" {
			out, err := sanitize.ValidatePath(outputPath, "")
			if err != nil {
				return fmt.Errorf("invalid --output: %w", err)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", outputPath, err)
			}
			defer f.Close()
			w = f
		}
		return runHighlight(cmd.Context(), w, cmd.ErrOrStderr(), args[0], args[1])
	},
}

func init() {
	highlightCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write HTML to this file instead of stdout")
}

func runHighlight(ctx context.Context, w, status io.Writer, path, quote string) error {
	sess, err := openFile(path)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	noScroll := false
	res, err := sess.Highlight(ctx, quote, engine.Options{ScrollIntoView: &noScroll})
	if err != nil {
		return fmt.Errorf("highlight failed [%s]: %w", engine.Code(err), err)
	}
	fmt.Fprintf(status, "%s %s via %s at %s\n",
		matchStyle.Render("✓"), res.HighlightID, res.Strategy, res.Path)
	return sess.Render(w)
}
