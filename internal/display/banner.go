package display

import (
	"fmt"
	"io"

	"github.com/pnwtools/pnwtools/internal/term"
)

// PrintBanner prints the tool banner to w; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, term.Magenta)
	fmt.Fprintf(w, "pnwtools %s | ARU recording archive utilities", version)
	fmt.Fprintln(w, term.NC)
}
