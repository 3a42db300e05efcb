package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("⚠ Warning:")
	errMark  = color.New(color.FgRed, color.Bold).Sprint("✗ Error:")
)

func printOK(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", okMark, fmt.Sprintf(format, a...))
}

func printWarning(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", warnMark, fmt.Sprintf(format, a...))
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errMark, err)
}

func heading(s string) string {
	return color.New(color.Bold).Sprint(s)
}
