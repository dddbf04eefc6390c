package flow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"orca/metrics"
	"orca/state"
)

// Metrics is the cli action behind "orca metrics": it lists stored runs.
func Metrics(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	dest := env.Cfg.Metrics.Destination
	if dest == "" {
		return errors.New("no metrics store configured, set metrics.destination")
	}
	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("metrics store %s is not readable: %w", dest, err)
	}

	store, err := metrics.Open(dest)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.List()
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stdout, "no stored runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAMP\tCOMMAND\tDESIGN\tRUN\tVALUES")
	for _, rec := range recs {
		names := make([]string, 0, len(rec.Values))
		for name := range rec.Values {
			names = append(names, name)
		}
		slices.Sort(names)
		values := ""
		for i, name := range names {
			if i > 0 {
				values += " "
			}
			values += fmt.Sprintf("%s=%g", name, rec.Values[name])
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			rec.Stamp.Local().Format(time.DateTime), rec.Command, rec.Design, rec.ID, values)
	}
	return w.Flush()
}
