package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd(c *cli) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   `chat --user ID "mensaje"`,
		Short: "Send one message to the assistant as a user",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.New("mensaje requerido")
			}

			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			reply, err := rt.Assistant.Reply(cmd.Context(), userID, message, rt.Service.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", reply.Intent, reply.Text)
			return err
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	return cmd
}
