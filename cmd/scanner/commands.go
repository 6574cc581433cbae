package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xelth-com/lotscan/internal/export"
	"github.com/xelth-com/lotscan/internal/scanner"
	"github.com/xelth-com/lotscan/internal/utils"
)

var scanCmd = &cobra.Command{
	Use:   "scan <code-or-url> [position]",
	Short: "Queue a scanned lot, optionally with its slot",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		item, err := queue.Scan(args[0])
		if err != nil {
			return err
		}
		if len(args) == 2 {
			if err := queue.SetPosition(item.ID, args[1]); err != nil {
				return err
			}
			item.Position = strings.TrimSpace(args[1])
		}
		fmt.Printf("queued %s %s\n", item.ID, item.Position)
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <lot> <position>",
	Short: "Set the slot of a queued lot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queue.SetPosition(args[0], args[1])
	},
}

var removeCmd = &cobra.Command{
	Use:     "rm <lot>",
	Aliases: []string{"remove"},
	Short:   "Drop a lot from the queue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return queue.Remove(args[0])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the queue, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LOT\tPOSITION\tSCANNED\tSTATE")
		for _, it := range queue.Items() {
			state := "pending"
			if it.Synced {
				state = "synced"
			} else if it.Position == "" {
				state = "no position"
			}
			at := time.UnixMilli(it.Timestamp).In(utils.VNZone).Format("15:04:05")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, it.Position, at, state)
		}
		return w.Flush()
	},
}

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Send pending placements to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		pending := queue.Pending()
		if len(pending) == 0 {
			return scanner.ErrNothingToSync
		}

		// Soft pre-check against the server's last known slot map
		if _, err := client.Occupied(ctx); err != nil {
			log.WithError(err).Warn("slot map unavailable, skipping local conflict check")
		} else if clash := client.PotentialConflicts(pending); len(clash) > 0 && !syncForce {
			for lot, holder := range clash {
				fmt.Printf("  %s: slot looks taken by %s\n", lot, holder)
			}
			return fmt.Errorf("%d items may clash with occupied slots; re-run with --force to let the server decide", len(clash))
		}

		report, err := client.Sync(ctx, queue)
		if err != nil {
			return err
		}
		fmt.Printf("synced %d of %d\n", report.Synced, report.Sent)
		for _, r := range report.Conflicts {
			fmt.Printf("  conflict %s: %s\n", r.LotCode, r.Message)
		}
		for _, r := range report.Failed {
			fmt.Printf("  failed %s: %s %s\n", r.LotCode, r.Error, r.Message)
		}
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove synced lots from the queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := queue.PurgeSynced()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d synced items\n", n)
		return nil
	},
}

var (
	exportReason string
	exportBy     string
	exportItems  []string
)

var exportCmd = &cobra.Command{
	Use:   "export <lot>",
	Short: "Export a lot, in full or by line (--item index:qty[:unit])",
	Long: "Export a lot. Without --item the whole lot goes to the deletion ledger.\n" +
		"Each --item takes qty of the lot line at index, in unit (default: the line's unit).\n" +
		"Quantities use a comma for decimals: 1,5",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		req := scanner.ExportRequest{
			LotCode:   scanner.ParseScan(args[0]),
			Mode:      export.ModeFull,
			Reason:    exportReason,
			DeletedBy: exportBy,
		}
		for _, spec := range exportItems {
			item, err := parseExportItem(spec)
			if err != nil {
				return err
			}
			req.Items = append(req.Items, item)
		}
		if len(req.Items) > 0 {
			req.Mode = export.ModePartial
		}

		res, err := client.Export(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d ledger rows, %d lines left (%s)\n", res.Message, res.DeletedRows, res.RemainingLines, res.ExportID)
		return nil
	},
}

// parseExportItem reads "index:qty[:unit]"
func parseExportItem(spec string) (scanner.ExportItem, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 {
		return scanner.ExportItem{}, fmt.Errorf("item %q: want index:qty[:unit]", spec)
	}
	idx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return scanner.ExportItem{}, fmt.Errorf("item %q: bad line index", spec)
	}
	qty := utils.ParseVN(parts[1])
	if !qty.IsPositive() {
		return scanner.ExportItem{}, fmt.Errorf("item %q: quantity must be positive", spec)
	}
	item := scanner.ExportItem{LineIndex: idx, Quantity: utils.FlexDecimal{Decimal: qty}}
	if len(parts) == 3 {
		item.Unit = strings.TrimSpace(parts[2])
	}
	return item, nil
}

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Send even when the local slot map shows a clash")

	exportCmd.Flags().StringVar(&exportReason, "reason", "", "Why the stock leaves (required)")
	exportCmd.Flags().StringVar(&exportBy, "by", "", "Worker name recorded in the deletion ledger")
	exportCmd.Flags().StringArrayVar(&exportItems, "item", nil, "Line selection index:qty[:unit], repeatable")
	_ = exportCmd.MarkFlagRequired("reason")
}
