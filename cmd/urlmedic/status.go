package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazz-dev/urlmedic/internal/storage"
)

type statusStore interface {
	AllLatest(ctx context.Context) ([]storage.Run, error)
}

func executeStatus(cmd *cobra.Command, db statusStore) error {
	out := cmd.OutOrStdout()
	runs, err := db.AllLatest(context.Background())
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No run history. Run 'urlmedic serve' first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tURLS\tFAILED\tDURATION\tLAST CHECKED\tRUN")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\t%s\n",
			r.Target,
			r.Total,
			r.Failed,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.FinishedAt.Local().Format("2006-01-02 15:04:05"),
			r.ID,
		)
	}
	w.Flush()
	return nil
}
