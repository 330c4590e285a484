package report

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"
)

var (
	logoLeft  = []string{"    ", " ___ ___", "| . |_ -", "|  _|___", "|_|     ", ""}
	logoRight = []string{"     _   _ _   _", "| |_|_| |_| |___", "|  _| |  _| | -_|", "|_| |_|_| |_|___|", "", ""}
)

// WriteLogo writes the two-tone "pstitle" logo to w.
func WriteLogo(w io.Writer, p Palette) error {
	bw := bufio.NewWriterSize(w, 384)
	for i := range logoLeft {
		if _, err := bw.WriteString(p.LogoLeft.Sprint(logoLeft[i]) + p.LogoRight.Sprint(logoRight[i]) + "\n"); err != nil {
			return errors.Wrap(err, "write logo")
		}
	}
	return errors.Wrap(bw.Flush(), "flush logo")
}
