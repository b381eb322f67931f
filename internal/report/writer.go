package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// Writer renders a report to an output sink.
type Writer interface {
	Write(w io.Writer, r *Report) error
}

// NewWriter returns the writer for a format. An empty format selects the console writer.
func NewWriter(format string, useColor bool) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return &ConsoleWriter{Color: useColor}, nil
	case "json":
		return JSONWriter{}, nil
	case "csv":
		return CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (valid: json, csv)", format)
	}
}

// WriteFile renders the report into path, or to stdout when path is empty.
func WriteFile(path string, w Writer, r *Report) error {
	if path == "" {
		return w.Write(os.Stdout, r)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := w.Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ConsoleWriter prints a grouped human-readable report.
type ConsoleWriter struct {
	Color bool
}

func (c *ConsoleWriter) Write(w io.Writer, r *Report) error {
	var buf bytes.Buffer
	for _, server := range r.Servers() {
		fmt.Fprintf(&buf, "\n======= %s =======\n", server)
		for _, db := range r.Databases(server) {
			fmt.Fprintf(&buf, "Database: %s\n", db)
			for _, obj := range r.Objects(server, db) {
				v, _ := r.Get(server, db, obj)
				fmt.Fprintf(&buf, "  Object: %s\n", obj)
				for _, line := range v.Flatten() {
					fmt.Fprintf(&buf, "    %s\n", c.paint(line))
				}
			}
		}
	}
	c.writeSummary(&buf, r)
	_, err := w.Write(buf.Bytes())
	return err
}

func (c *ConsoleWriter) paint(line string) string {
	if !c.Color {
		return line
	}
	trimmed := strings.TrimLeft(line, " ")
	switch {
	case strings.HasPrefix(trimmed, "[ERROR]"):
		return color.Red.Sprint(line)
	case strings.HasPrefix(trimmed, "Warning:"):
		return color.Yellow.Sprint(line)
	case strings.HasPrefix(trimmed, "- "):
		return color.Red.Sprint(line)
	case strings.HasPrefix(trimmed, "+ "):
		return color.Green.Sprint(line)
	case line == "Sync successful":
		return color.Green.Sprint(line)
	}
	return line
}

// writeSummary prints one aligned row per server/database with its entry count.
// Server and database names may contain wide characters.
func (c *ConsoleWriter) writeSummary(buf *bytes.Buffer, r *Report) {
	if r.Empty() {
		fmt.Fprintln(buf, "No differences found.")
		return
	}
	type row struct {
		server, db string
		n          int
	}
	var rows []row
	sw, dw := runewidth.StringWidth("Server"), runewidth.StringWidth("Database")
	for _, s := range r.Servers() {
		for _, d := range r.Databases(s) {
			rows = append(rows, row{s, d, len(r.Objects(s, d))})
			if w := runewidth.StringWidth(s); w > sw {
				sw = w
			}
			if w := runewidth.StringWidth(d); w > dw {
				dw = w
			}
		}
	}
	fmt.Fprintf(buf, "\n%s  %s  Objects\n", runewidth.FillRight("Server", sw), runewidth.FillRight("Database", dw))
	for _, rw := range rows {
		fmt.Fprintf(buf, "%s  %s  %d\n", runewidth.FillRight(rw.server, sw), runewidth.FillRight(rw.db, dw), rw.n)
	}
}

// JSONWriter writes the nested report as an indented JSON object.
type JSONWriter struct{}

func (JSONWriter) Write(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.servers); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// CSVWriter writes one row per object: Server, Database, Object, Differences.
// Multi-line differences are joined with newlines in a single cell.
type CSVWriter struct{}

func (CSVWriter) Write(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Server", "Database", "Object", "Differences"}); err != nil {
		return err
	}
	for _, e := range r.Entries() {
		if err := cw.Write([]string{e.Server, e.Database, e.Object, strings.Join(e.Value.Flatten(), "\n")}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
