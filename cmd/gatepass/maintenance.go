package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/diewo77/gatepass/auth"
	"github.com/diewo77/gatepass/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := openDB(); err != nil {
			return err
		}
		logger.Info("migrations completed")
		return nil
	},
}

var seedDemo bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles and capabilities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		roles, err := loadRoles()
		if err != nil {
			return err
		}
		if err := db.Seed(conn, roles); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("roles seeded")
		if !seedDemo {
			return nil
		}

		d, err := db.SeedDemo(conn, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("seed demo: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "permission %d approved for employee %d\n", d.Permission.ID, d.Employee.EmployeeID)
		for _, acc := range []struct {
			label string
			id    uint
		}{
			{"employee", d.Employee.ID},
			{"colleague", d.Colleague.ID},
			{"guard", d.Guard.ID},
		} {
			fmt.Fprintf(out, "%-9s account %d  token %s\n", acc.label, acc.id, auth.Token(acc.id))
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create demo accounts and an approved permission")
}

var sessionTokenCmd = &cobra.Command{
	Use:   "session-token <account-id>",
	Short: "Print a bearer token for an account (scanner devices, scripts)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid account id %q", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), auth.Token(uint(id)))
		return nil
	},
}
