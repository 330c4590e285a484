package report

import (
	"fmt"

	"github.com/pterm/pterm"
)

// Styler applies terminal styling to text. pterm styles, colours and RGB
// values all satisfy it.
type Styler interface {
	Sprint(a ...interface{}) string
}

// plain leaves text untouched.
type plain struct{}

func (plain) Sprint(a ...interface{}) string { return fmt.Sprint(a...) }

// boldRGB renders text in an RGB colour with bold weight.
type boldRGB struct {
	rgb pterm.RGB
}

func (b boldRGB) Sprint(a ...interface{}) string {
	return pterm.Bold.Sprint(b.rgb.Sprint(a...))
}

// Palette decides how every element of the logo and the report is styled.
// It is passed to the renderer explicitly; there are no package level styles.
type Palette struct {
	LogoLeft  Styler
	LogoRight Styler

	Border     Styler
	Title      Styler
	TitleError Styler
	Label      Styler

	ItemSuccess        Styler
	ItemPartialSuccess Styler
	ItemFailure        Styler

	ErrorItem    Styler
	ErrorMessage Styler
}

// DefaultPalette returns the colours used on an interactive terminal.
func DefaultPalette() Palette {
	return Palette{
		LogoLeft:  pterm.NewStyle(pterm.FgBlue, pterm.Bold),
		LogoRight: pterm.NewStyle(pterm.FgGreen, pterm.Bold),

		Border:     pterm.NewStyle(pterm.FgBlue, pterm.Bold),
		Title:      pterm.NewStyle(pterm.FgCyan, pterm.Bold),
		TitleError: pterm.NewStyle(pterm.FgRed, pterm.Bold),
		Label:      pterm.NewStyle(pterm.Bold),

		ItemSuccess:        pterm.NewStyle(pterm.FgGreen, pterm.Bold),
		ItemPartialSuccess: boldRGB{rgb: pterm.NewRGB(216, 216, 0)},
		ItemFailure:        pterm.NewStyle(pterm.FgRed, pterm.Bold),

		ErrorItem:    plain{},
		ErrorMessage: pterm.NewStyle(pterm.FgYellow),
	}
}

// PlainPalette returns a palette that applies no styling, for pipes, log
// files and tests.
func PlainPalette() Palette {
	p := plain{}
	return Palette{
		LogoLeft: p, LogoRight: p,
		Border: p, Title: p, TitleError: p, Label: p,
		ItemSuccess: p, ItemPartialSuccess: p, ItemFailure: p,
		ErrorItem: p, ErrorMessage: p,
	}
}
