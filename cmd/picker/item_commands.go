package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"picker/internal/api"
	"picker/internal/ipc"
	"picker/internal/queue"
)

func newItemCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newListCommand(ctx, "available", "List unselected items in universe order", (*ipc.Client).ListAvailable),
		newListCommand(ctx, "selected", "List selected items in selection order", (*ipc.Client).ListSelected),
		newMutationCommand(ctx, queue.OpSelect, "Queue selecting an item (fast lane)"),
		newMutationCommand(ctx, queue.OpDeselect, "Queue deselecting an item (fast lane)"),
		newMutationCommand(ctx, queue.OpAdd, "Queue adding an item to the universe (slow lane)"),
		newReorderCommand(ctx),
	}
}

type listFunc func(*ipc.Client, ipc.ListRequest) (*ipc.ListResponse, error)

func newListCommand(ctx *commandContext, use, short string, list listFunc) *cobra.Command {
	var req ipc.ListRequest
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := list(client, req)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				renderItems(cmd.OutOrStdout(), use, resp)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "Number of matching items to skip")
	cmd.Flags().IntVar(&req.Limit, "limit", 0, "Page size (defaults to items.default_limit)")
	cmd.Flags().StringVar(&req.Filter, "filter", "", "Only show ids whose decimal form contains this substring")
	return cmd
}

func renderItems(out io.Writer, view string, resp *ipc.ListResponse) {
	if len(resp.Items) == 0 {
		fmt.Fprintf(out, "No %s items", view)
		if resp.Filter != nil {
			fmt.Fprintf(out, " matching %q", *resp.Filter)
		}
		fmt.Fprintf(out, " (total %s)\n", formatCount(resp.Total))
		return
	}
	rows := make([][]string, 0, len(resp.Items))
	for i, id := range resp.Items {
		rows = append(rows, []string{strconv.Itoa(resp.Offset + i + 1), strconv.FormatInt(id, 10)})
	}
	fmt.Fprint(out, renderTable([]string{"#", "ID"}, rows, []columnAlignment{alignRight, alignRight}))
	summary := fmt.Sprintf("Showing %s-%s of %s",
		formatCount(resp.Offset+1), formatCount(resp.Offset+len(resp.Items)), formatCount(resp.Total))
	if resp.Filter != nil {
		summary += fmt.Sprintf(" (filter %q)", *resp.Filter)
	}
	fmt.Fprintln(out, summary)
}

func newMutationCommand(ctx *commandContext, opType queue.OpType, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(opType) + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseItemID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Enqueue(ipc.EnqueueRequest{Type: string(opType), ID: id})
				if err != nil {
					return err
				}
				return printMutation(cmd, ctx, resp, fmt.Sprintf("%s %d queued on the %s lane", opType, id, opType.Lane()))
			})
		},
	}
}

func newReorderCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder [id...]",
		Short: "Queue moving selected ids to the front of the selection, in the given order",
		RunE: func(cmd *cobra.Command, args []string) error {
			order := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseItemID(arg)
				if err != nil {
					return err
				}
				order = append(order, id)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Enqueue(ipc.EnqueueRequest{Type: string(queue.OpReorder), Order: order})
				if err != nil {
					return err
				}
				return printMutation(cmd, ctx, resp, fmt.Sprintf("reorder of %d ids queued on the fast lane", len(order)))
			})
		},
	}
}

func printMutation(cmd *cobra.Command, ctx *commandContext, resp *api.MutationResponse, detail string) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Message, detail)
	return nil
}

func parseItemID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid item id %q: must be a positive integer", raw)
	}
	return id, nil
}

func newFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "flush [fast|slow]",
		Short:     "Apply pending operations now instead of waiting for the lane window",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(queue.LaneFast), string(queue.LaneSlow)},
		RunE: func(cmd *cobra.Command, args []string) error {
			lanes := queue.Lanes()
			if len(args) == 1 {
				lane, ok := queue.ParseLane(args[0])
				if !ok {
					return fmt.Errorf("unknown lane %q (expected fast or slow)", args[0])
				}
				lanes = []queue.Lane{lane}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				results := make([]api.FlushResponse, 0, len(lanes))
				for _, lane := range lanes {
					resp, err := client.Flush(string(lane))
					if err != nil {
						return err
					}
					results = append(results, *resp)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				for _, res := range results {
					fmt.Fprintf(cmd.OutOrStdout(), "%s lane: flushed %s operations\n", laneLabel(res.Lane), formatCount(res.Flushed))
				}
				return nil
			})
		},
	}
}
