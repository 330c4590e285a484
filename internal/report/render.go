package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"pstitle/internal/models"
)

const border = "------------------------------------------------------------"

// Renderer formats a Report as text.
type Renderer struct {
	palette Palette
}

// NewRenderer returns a renderer using the given palette.
func NewRenderer(p Palette) *Renderer {
	return &Renderer{palette: p}
}

// Render returns the report text. It only reads r, so rendering the same
// report twice yields identical output.
func (rd *Renderer) Render(r Report) string {
	p := rd.palette
	failed := len(r.Failed)

	var b strings.Builder
	b.Grow(1024)

	b.WriteString("\n")
	b.WriteString(p.Border.Sprint(border) + "\n")
	b.WriteString(p.Title.Sprint("# Report") + "\n\n")
	b.WriteString(p.Title.Sprint("## Summary") + "\n\n")

	rd.writeCount(&b, "* Records processed:", r.Succeeded, p.ItemSuccess)
	rd.writeCount(&b, "* Records processed (missing info):", r.MissingInfo, p.ItemPartialSuccess)
	rd.writeCount(&b, "* Records with errors:", failed, p.ItemFailure)
	rd.writeCount(&b, "* Records skipped (pre-existing):", r.Skipped, nil)

	if failed > 0 {
		b.WriteString("\n")
		b.WriteString(p.TitleError.Sprint("## Errors") + "\n\n")
		fmt.Fprintf(&b, "%s | %s | %s\n",
			p.Label.Sprint(fmt.Sprintf("%5s", "#")),
			p.Label.Sprint(fmt.Sprintf("%-13s", "title_number")),
			p.Label.Sprint(fmt.Sprintf("%-30s", "error")),
		)
		b.WriteString("----- | ------------- | ------------------------------\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&b, "%5d | %s | %s\n",
				f.Record.Index,
				p.ErrorItem.Sprint(fmt.Sprintf("%-13s", models.TitleNumber(f.Record))),
				p.ErrorMessage.Sprint(fmt.Sprintf("%-30s", f.Message)),
			)
		}
	}

	b.WriteString(p.Border.Sprint(border) + "\n")
	return b.String()
}

// writeCount writes one summary line. Non-zero counts are highlighted when a
// style is given.
func (rd *Renderer) writeCount(b *strings.Builder, label string, n int, highlight Styler) {
	value := fmt.Sprintf("%7s", strconv.Itoa(n))
	if n > 0 && highlight != nil {
		value = highlight.Sprint(value)
	}
	fmt.Fprintf(b, "%s %s\n", rd.palette.Label.Sprint(fmt.Sprintf("%-35s", label)), value)
}

// Write renders r to w and flushes it before returning.
func (rd *Renderer) Write(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(rd.Render(r)); err != nil {
		return errors.Wrap(err, "write execution report")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flush execution report")
	}
	return nil
}
