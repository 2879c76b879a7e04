package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"picker/internal/api"
	"picker/internal/ipc"
)

func newBatchesCommand(ctx *commandContext) *cobra.Command {
	var lane string
	var limit int

	cmd := &cobra.Command{
		Use:   "batches [id]",
		Short: "Show recently applied batches from the journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := ipc.BatchesRequest{Lane: lane, Limit: limit}
			if len(args) == 1 {
				req.ID = args[0]
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Batches(req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if req.ID != "" && len(resp.Batches) == 1 {
						return writeJSON(cmd, resp.Batches[0])
					}
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if req.ID != "" && len(resp.Batches) == 1 {
					renderBatchDetail(out, resp.Batches[0])
					return nil
				}
				renderBatchList(out, resp.Batches)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lane, "lane", "", "Only show batches for this lane (fast or slow)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of batches to show")
	return cmd
}

func renderBatchList(out io.Writer, batches []api.Batch) {
	if len(batches) == 0 {
		fmt.Fprintln(out, "No batches recorded")
		return
	}
	rows := make([][]string, 0, len(batches))
	for _, batch := range batches {
		rows = append(rows, []string{
			batch.ID,
			laneLabel(batch.Lane),
			formatCount(batch.Size),
			formatCount(batch.Applied),
			formatCount(batch.Skipped),
			formatTimestamp(batch.StartedAt),
			formatMicros(batch.DurationUS),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"Batch", "Lane", "Size", "Applied", "Skipped", "Started", "Duration"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight},
	))
}

func renderBatchDetail(out io.Writer, batch api.Batch) {
	fmt.Fprintf(out, "Batch %s (%s lane)\n", batch.ID, laneLabel(batch.Lane))
	fmt.Fprintf(out, "  Started:  %s\n", formatTimestamp(batch.StartedAt))
	fmt.Fprintf(out, "  Duration: %s\n", formatMicros(batch.DurationUS))
	fmt.Fprintf(out, "  Applied:  %s of %s\n", formatCount(batch.Applied), formatCount(batch.Size))
	if len(batch.Operations) == 0 {
		return
	}
	rows := make([][]string, 0, len(batch.Operations))
	for _, op := range batch.Operations {
		target := "-"
		if op.Type == "reorder" {
			target = formatOrder(op.Order)
		} else if op.ItemID > 0 {
			target = strconv.FormatInt(op.ItemID, 10)
		}
		reason := dash(op.Reason)
		if op.Dropped > 0 {
			reason = fmt.Sprintf("%d unknown ids dropped", op.Dropped)
		}
		rows = append(rows, []string{
			strconv.Itoa(op.Position),
			op.Type,
			target,
			op.Outcome,
			reason,
			dash(op.RequestID),
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"#", "Type", "Target", "Outcome", "Reason", "Request"},
		rows,
		[]columnAlignment{alignRight},
	))
}
