package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/autotrain/dataframe"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
	"github.com/YuminosukeSato/autotrain/washing"
)

func (a *app) washCommand() *cobra.Command {
	var (
		out        string
		parseDates bool
		report     bool
	)
	cmd := &cobra.Command{
		Use:   "wash <csv>",
		Short: "Clean a CSV table and write the numeric result as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			washer := washing.NewWasher(a.cfg.WasherOptions(a.logger)...)
			ds, rep, err := washer.WashFile(args[0], dataframe.CSVOptions{ParseDates: parseDates})
			if err != nil {
				return err
			}

			w := a.stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return errors.Wrapf(err, "create %s", out)
				}
				defer f.Close()
				w = f
			}
			if err := ds.WriteCSV(w); err != nil {
				return err
			}

			if report {
				return render(a.stderr, "json", rep)
			}
			fmt.Fprintf(a.stderr, "washed %d×%d → %d×%d", rep.InputRows, rep.InputCols, rep.OutputRows, rep.OutputCols)
			if dropped := rep.Dropped(); len(dropped) > 0 {
				fmt.Fprintf(a.stderr, ", dropped: %s", strings.Join(dropped, ", "))
			}
			fmt.Fprintln(a.stderr)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the cleaned CSV here instead of stdout")
	cmd.Flags().BoolVar(&parseDates, "parse-dates", true, "recognise date cells so datetime columns are dropped")
	cmd.Flags().BoolVar(&report, "report", false, "print the per-column report as JSON to stderr")
	return cmd
}
