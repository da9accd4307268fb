// Package output renders command results as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

// Format is the requested output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table or json)", s)
	}
}

// Options controls how a command writes its result.
type Options struct {
	Format   Format
	Compact  bool
	DryRun   bool
	MaxWidth int
	Out      io.Writer
	Color    bool
}

// NewOptions returns options writing to stdout, coloured when stdout is a
// terminal.
func NewOptions(format Format) *Options {
	return &Options{
		Format:   format,
		MaxWidth: 40,
		Out:      os.Stdout,
		Color:    isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
}

// IsJSON reports whether JSON output was requested.
func (o *Options) IsJSON() bool {
	return o.Format == FormatJSON
}

// PrintJSON writes v as JSON followed by a newline.
func (o *Options) PrintJSON(v any) error {
	var (
		data []byte
		err  error
	)
	if o.Compact {
		data, err = json.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(o.Out, string(data))
	return err
}

// Table writes a header and rows aligned in columns.
func (o *Options) Table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(o.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Printf writes formatted text to the output.
func (o *Options) Printf(format string, args ...any) {
	fmt.Fprintf(o.Out, format, args...)
}

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
)

// Green renders s in green when colour is enabled.
func (o *Options) Green(s string) string { return o.paint(ansiGreen, s) }

// Warn renders s in bold yellow when colour is enabled.
func (o *Options) Warn(s string) string { return o.paint(ansiBold+ansiYellow, s) }

func (o *Options) paint(code, s string) string {
	if !o.Color {
		return s
	}
	return code + s + ansiReset
}

// Truncate shortens s to at most max characters, replacing the tail with
// "..." when max leaves room for it. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
