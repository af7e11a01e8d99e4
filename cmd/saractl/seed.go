package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Roan1982/saraianew/internal/domain"
)

// seedUsers are the demo accounts a fresh deployment starts with.
var seedUsers = []domain.User{
	{Username: "admin", FirstName: "Administrador", LastName: "Sistema", Email: "admin@sara.com", Role: domain.RoleAdmin},
	{Username: "supervisor1", FirstName: "Supervisor", LastName: "Uno", Email: "supervisor1@sara.com", Role: domain.RoleSupervisor},
	{Username: "empleado1", FirstName: "Empleado", LastName: "Uno", Email: "empleado1@sara.com", Role: domain.RoleEmployee},
	{Username: "empleado2", FirstName: "Empleado", LastName: "Dos", Email: "empleado2@sara.com", Role: domain.RoleEmployee},
}

func newSeedCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create or update the demo accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := c.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			saved := make([]domain.User, 0, len(seedUsers))
			for _, u := range seedUsers {
				user, err := rt.Service.SeedUser(cmd.Context(), u)
				if err != nil {
					return fmt.Errorf("seed %s: %w", u.Username, err)
				}
				saved = append(saved, user)
			}
			return writeUsers(cmd.OutOrStdout(), saved)
		},
	}
}

func writeUsers(w io.Writer, users []domain.User) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"ID", "Usuario", "Nombre", "Rol"})
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, u.DisplayName(), string(u.Role)})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
