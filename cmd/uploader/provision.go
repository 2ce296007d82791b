package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/8adimka/data-uploader/internal/config"
	"github.com/8adimka/data-uploader/internal/provision"
)

func newProvisionCmd(cfg func() *config.Config) *cobra.Command {
	var endpoint, key, database string

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the database if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			endpointArg, keyArg := c.DocDBEndpoint, c.DocDBKey
			if cmd.Flags().Changed("endpoint") {
				endpointArg = &endpoint
			}
			if cmd.Flags().Changed("key") {
				keyArg = &key
			}
			if !cmd.Flags().Changed("database") {
				database = c.DocDBDatabase
			}

			p := provision.New(provision.WithPolicy(c.ClientPolicy()))
			h, err := p.ProvisionDatabase(ctx, endpointArg, keyArg, database)
			if err != nil {
				return fmt.Errorf("provision %q: %w", database, err)
			}
			defer func() {
				if err := h.Close(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("Failed to disconnect", "error", err)
				}
			}()

			state := "existing"
			if h.Created {
				state = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.Name(), state)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Connection string of the document database (default $DOCDB_ENDPOINT)")
	cmd.Flags().StringVar(&key, "key", "", "Account key or resource token (default $DOCDB_KEY)")
	cmd.Flags().StringVar(&database, "database", "", "Database name (default $DOCDB_DATABASE)")

	return cmd
}
