package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Roan1982/saraianew/internal/auth"
	"github.com/Roan1982/saraianew/internal/domain"
)

func newTokenCmd(c *cli) *cobra.Command {
	var (
		userID int64
		role   string
		scopes []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			claims := auth.Claims{
				Subject:   strconv.FormatInt(userID, 10),
				UserID:    userID,
				Role:      role,
				Scopes:    make(map[string]struct{}, len(scopes)),
				ExpiresAt: time.Now().Add(ttl),
			}
			for _, s := range scopes {
				claims.Scopes[s] = struct{}{}
			}
			token, err := auth.Sign(claims, auth.Config{Secret: c.cfg.JWTSecret, Issuer: c.cfg.JWTIssuer})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleEmployee), "role claim")
	cmd.Flags().StringSliceVar(&scopes, "scope", []string{auth.ScopeTelemetryWrite, auth.ScopeAssistantUse, auth.ScopeDashboardRead}, "scopes to grant")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	return cmd
}
