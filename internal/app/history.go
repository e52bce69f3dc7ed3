package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// ShowHistory prints the most recent fired alerts from the audit log.
func (a *App) ShowHistory(ctx context.Context, limit int) error {
	store, closer, err := a.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("history.path not configured")
	}
	defer closer()

	records, err := store.ListRecent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no alerts recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIRED AT\tSYMBOL\tMODE\tPRICE\tDELTA\tLEVEL\tDIRECTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.FiredAt.UTC().Format(time.RFC3339), r.Symbol, r.Mode,
			r.Price.StringFixed(2), r.Delta.StringFixed(2), r.Level, r.Direction)
	}
	return w.Flush()
}
