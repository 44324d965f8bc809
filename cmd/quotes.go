package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/blacktop/reelpost/internal/quotes"
	"github.com/spf13/cobra"
)

func newQuotesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quotes",
		Short: "List the quote library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := quotes.All()
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE\tQUOTE")
			for _, q := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\n", q.ID, q.Source, q.Text)
			}
			return w.Flush()
		},
	}
}
