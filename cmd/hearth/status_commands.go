package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hearth/internal/wire"
)

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check whether the daemon is alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := ctx.exchange(&wire.Request{Action: wire.ActionPing})
			if err != nil {
				return err
			}
			if reply.Action != "pong" {
				return fmt.Errorf("unexpected ping reply: %+v", reply)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pong")
			return nil
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := ctx.exchange(&wire.Request{Action: wire.ActionStatus})
			if err != nil {
				return err
			}
			if reply.Error != "" {
				return fmt.Errorf("%s", reply.Error)
			}

			cfg := ctx.configValue()
			rows := [][]string{
				{"Status", reply.Status},
				{"Model loaded", yesNo(reply.ModelLoaded != nil && *reply.ModelLoaded)},
				{"Clients connected", formatCount(reply.ClientsConnected)},
				{"Memory usage", formatMemory(reply.MemoryUsage)},
			}
			if cfg != nil {
				rows = append(rows, []string{"Model", cfg.LLM.Model})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatCount(value *int) string {
	if value == nil {
		return "0"
	}
	return fmt.Sprintf("%d", *value)
}

func formatMemory(value any) string {
	switch v := value.(type) {
	case nil:
		return "unknown"
	case string:
		return v
	case float64:
		// JSON numbers decode as float64.
		return fmt.Sprintf("%.0f MiB", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
