package ui

import (
	"fmt"
	"io"
	"os"
)

// Banner is printed at the start of a collect run
const Banner = `
  ╔══════════════════════════════════════╗
  ║  igfollow · follow-list collector    ║
  ╚══════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// Console writes operator-facing messages. Errors always go to the error
// writer; everything else is suppressed when quiet.
type Console struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

// NewConsole creates a Console over the given writers
func NewConsole(out, errOut io.Writer, quiet bool) *Console {
	return &Console{out: out, err: errOut, quiet: quiet}
}

// Stdio returns a Console over stdout and stderr
func Stdio(quiet bool) *Console {
	return NewConsole(os.Stdout, os.Stderr, quiet)
}

// Out is the writer for regular output, io.Discard when quiet
func (c *Console) Out() io.Writer {
	if c.quiet {
		return io.Discard
	}
	return c.out
}

// PrintBanner prints the banner in cyan
func (c *Console) PrintBanner() {
	fmt.Fprint(c.Out(), Cyan(Banner))
}

// PrintError prints an error message in red to the error writer
func (c *Console) PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(c.err, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(c.err, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func (c *Console) PrintSuccess(msg string) {
	fmt.Fprintln(c.Out(), Green(msg))
}

// PrintInfo prints a label and value
func (c *Console) PrintInfo(label string, value string) {
	fmt.Fprintf(c.Out(), "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func (c *Console) PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(c.Out(), Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(c.Out(), Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func (c *Console) PrintHighlight(msg string) {
	fmt.Fprintln(c.Out(), Magenta(msg))
}
