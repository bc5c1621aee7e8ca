package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	mbp "go.messdienerplan.de/core/mainboilerplate"
	"go.messdienerplan.de/core/table"
	"gopkg.in/yaml.v2"
)

type cmdExport struct {
	Format string `long:"format" short:"o" choice:"json" choice:"yaml" choice:"table" default:"json" description:"Output format"`
}

func init() {
	CommandRegistry.AddCommand("", "export", "Export the stored state", `
Export the complete state of the relational database: the duty roster,
the sign-up queues, and their enrollments.

The database is read directly, bypassing backend selection and fallback.
If it can't be read, export fails with a non-zero exit status.

Results can be output in a variety of --format options:
json:  Prints the state as the remote document, indented.
yaml:  Prints the state as YAML, with the same structure.
table: Prints each logical table for humans to read.
`, &cmdExport{})
}

func (cmd *cmdExport) Execute([]string) error {
	var ctx, cancel = startup()
	defer cancel()

	var sql = mustOpenSQL(ctx)
	defer sql.Close()

	var state, err = sql.LoadState(ctx)
	mbp.Must(err, "failed to load state")

	mbp.Must(writeState(os.Stdout, cmd.Format, state), "failed to write output")
	return nil
}

func writeState(w io.Writer, format string, state table.State) error {
	switch format {
	case "json":
		var enc = json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case "yaml":
		var b, err = yaml.Marshal(state)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case "table":
		for _, section := range []struct {
			title string
			t     table.Table
		}{
			{"Plan", state.Plan},
			{"Wartelisten", state.Queues},
			{"Einträge", state.Enrollments},
		} {
			fmt.Fprintf(w, "%s (%s Zeilen)\n", section.title, humanize.Comma(int64(len(section.t.Rows()))))
			if err := writeTable(w, section.t); err != nil {
				return errors.WithMessagef(err, "writing %s", section.title)
			}
			fmt.Fprintln(w)
		}
		return nil
	default:
		return errors.Errorf("unknown format %q", format)
	}
}

func writeTable(w io.Writer, t table.Table) error {
	var out = tablewriter.NewWriter(w)
	out.Header(t.Header())

	for _, row := range table.Normalize(t).Rows() {
		if err := out.Append(row); err != nil {
			return err
		}
	}
	return out.Render()
}
