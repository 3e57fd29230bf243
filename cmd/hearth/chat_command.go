package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"hearth/internal/wire"
)

func newChatCommand(ctx *commandContext) *cobra.Command {
	var temperature float64
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session with the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			color := shouldColorize(stdout)

			fmt.Fprintln(stdout, colorize(color, text.FgHiBlack, "Connected to hearth. Type 'exit' to quit, 'clear' to reset the conversation."))

			var history []wire.Message
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64*1024), 1024*1024)

			for {
				fmt.Fprint(stdout, colorize(color, text.FgCyan, "you> "))
				if !scanner.Scan() {
					if err := scanner.Err(); err != nil && err != io.EOF {
						return fmt.Errorf("read input: %w", err)
					}
					fmt.Fprintln(stdout)
					return nil
				}

				line := strings.TrimSpace(scanner.Text())
				switch line {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "clear":
					history = history[:0]
					fmt.Fprintln(stdout, colorize(color, text.FgHiBlack, "Conversation cleared."))
					continue
				}

				history = append(history, wire.Message{Role: wire.RoleUser, Content: line})
				reply, err := ctx.exchange(chatRequest(history, temperature, maxTokens))
				if err != nil {
					return err
				}
				if reply.Error != "" {
					fmt.Fprintln(stdout, colorize(color, text.FgRed, "error: "+reply.Error))
					// Drop the failed turn so a retry does not double it.
					history = history[:len(history)-1]
					continue
				}
				if reply.Warning != "" {
					fmt.Fprintln(stdout, colorize(color, text.FgYellow, "warning: "+reply.Warning))
					history = history[:len(history)-1]
					continue
				}

				history = append(history, wire.Message{Role: wire.RoleAssistant, Content: reply.Response})
				fmt.Fprintln(stdout, colorize(color, text.FgGreen, "model> ")+reply.Response)
			}
		},
	}

	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "Sampling temperature (0 uses the daemon default)")
	cmd.Flags().IntVarP(&maxTokens, "max-tokens", "m", 0, "Response token ceiling (0 uses the daemon default)")
	return cmd
}

func newAskCommand(ctx *commandContext) *cobra.Command {
	var temperature float64
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			messages := []wire.Message{{Role: wire.RoleUser, Content: strings.Join(args, " ")}}
			reply, err := ctx.exchange(chatRequest(messages, temperature, maxTokens))
			if err != nil {
				return err
			}
			if reply.Error != "" {
				return fmt.Errorf("%s", reply.Error)
			}
			if reply.Warning != "" {
				return fmt.Errorf("%s", reply.Warning)
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Response)
			return nil
		},
	}

	cmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "Sampling temperature (0 uses the daemon default)")
	cmd.Flags().IntVarP(&maxTokens, "max-tokens", "m", 0, "Response token ceiling (0 uses the daemon default)")
	return cmd
}

func chatRequest(messages []wire.Message, temperature float64, maxTokens int) *wire.Request {
	req := &wire.Request{Action: wire.ActionChat, Messages: messages}
	if temperature > 0 {
		req.Temperature = &temperature
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	return req
}
