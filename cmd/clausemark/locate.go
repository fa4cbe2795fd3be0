package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/clausemark/internal/dom"
	"github.com/fyrsmithlabs/clausemark/internal/engine"
	"github.com/fyrsmithlabs/clausemark/internal/flatten"
	"github.com/fyrsmithlabs/clausemark/internal/match"
)

// previewContext is the number of buffer bytes shown either side of a match.
const previewContext = 60

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("226")).
			Bold(true)

	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

var locateCmd = &cobra.Command{
	Use:   "locate <file> <quote>",
	Short: "Show where a quote matches in an HTML file",
	Long: `Run the match cascade against an HTML file and print the winning
strategy with a preview of the surrounding text. The file is not modified.

Examples:
  clausemark locate policy.html "we collect your personal information"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocate(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
	},
}

func runLocate(ctx context.Context, w io.Writer, path, quote string) error {
	sess, err := openFile(path)
	if err != nil {
		return err
	}
	defer sess.Close(ctx)

	m, err := sess.Locate(ctx, quote)
	if engine.IsMiss(err) {
		fmt.Fprintln(w, missStyle.Render("✗ no match")+" "+dimStyle.Render(err.Error()))
		return nil
	}
	if err != nil {
		return err
	}
	ix, err := sess.Index()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, renderPreview(ix, m))
	return nil
}

// renderPreview describes m with a highlighted excerpt of its context.
func renderPreview(ix *flatten.Index, m match.Match) string {
	var b strings.Builder
	field := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-11s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteByte('\n')
	}
	field("strategy", m.Strategy.String())
	field("similarity", fmt.Sprintf("%.2f", m.Similarity))

	if m.Element != nil {
		field("element", dom.Path(m.Element))
		b.WriteString(matchStyle.Render(collapse(dom.TextContent(m.Element))))
		return b.String()
	}

	field("range", fmt.Sprintf("%d-%d", m.Start, m.End))
	from := runeStart(ix.Buffer, max(0, m.Start-previewContext))
	to := runeStart(ix.Buffer, min(len(ix.Buffer), m.End+previewContext))
	if from > 0 {
		b.WriteString(dimStyle.Render("…"))
	}
	b.WriteString(dimStyle.Render(rawText(ix, from, m.Start)))
	b.WriteString(matchStyle.Render(rawText(ix, m.Start, m.End)))
	b.WriteString(dimStyle.Render(rawText(ix, m.End, to)))
	if to < len(ix.Buffer) {
		b.WriteString(dimStyle.Render("…"))
	}
	return b.String()
}

// rawText returns the document text behind the buffer range [start, end)
// with its original case. Whitespace runs collapse to one space, and a
// space at either end of the range is kept so adjacent pieces stay apart.
func rawText(ix *flatten.Index, start, end int) string {
	var parts []string
	for _, sp := range ix.Overlapping(start, end) {
		from, to := sp.RawRange(start, end)
		if from < 0 || to > len(sp.Node.Data) || from >= to {
			continue
		}
		parts = append(parts, sp.Node.Data[from:to])
	}
	text := collapse(strings.Join(parts, " "))
	if text == "" {
		return ""
	}
	if start < len(ix.Buffer) && ix.Buffer[start] == ' ' {
		text = " " + text
	}
	if end > 0 && end <= len(ix.Buffer) && ix.Buffer[end-1] == ' ' {
		text += " "
	}
	return text
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// runeStart moves off back to the start of the rune containing it.
func runeStart(s string, off int) int {
	for off > 0 && off < len(s) && !utf8.RuneStart(s[off]) {
		off--
	}
	return off
}
