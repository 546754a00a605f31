package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			defer svc.bus.Shutdown()

			question := strings.Join(args, " ")
			conv := svc.store.CreateConversation("cli session")

			reply, err := svc.handler.ProcessMessage(cmd.Context(), conv.ID, question)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			return nil
		},
	}
}
