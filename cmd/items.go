package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/prodsheet/internal/model"
	"github.com/sells-group/prodsheet/internal/store"
)

var (
	itemsStyle  string
	itemsStatus string
	itemsOrder  string
	itemsSkip   int
	itemsLimit  int
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List stored production items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		f := store.Filter{
			Style:       itemsStyle,
			Status:      model.Status(itemsStatus),
			OrderNumber: itemsOrder,
			Skip:        itemsSkip,
			Limit:       itemsLimit,
		}

		items, err := st.Query(ctx, f)
		if err != nil {
			return err
		}
		total, err := st.Count(ctx, f)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ORDER\tSTYLE\tCOLOR\tQTY\tSTATUS\tSHIPPING\tSOURCE")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				it.OrderNumber, it.Style, it.Color, it.Quantity, it.Status, it.Dates.Shipping, it.SourceFile)
		}
		tw.Flush()
		fmt.Printf("%d of %d items\n", len(items), total)

		return nil
	},
}

func init() {
	itemsCmd.Flags().StringVar(&itemsStyle, "style", "", "filter by style substring")
	itemsCmd.Flags().StringVar(&itemsStatus, "status", "", "filter by exact status")
	itemsCmd.Flags().StringVar(&itemsOrder, "order", "", "filter by order number substring")
	itemsCmd.Flags().IntVar(&itemsSkip, "skip", 0, "items to skip")
	itemsCmd.Flags().IntVar(&itemsLimit, "limit", 100, "max items to return")
	rootCmd.AddCommand(itemsCmd)
}
