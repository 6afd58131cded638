package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoicedash/internal/amqp"
	"invoicedash/internal/backend"
	"invoicedash/internal/core"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend.BackendType(a.cfg.DataBackend) == backend.MemoryBackend {
				return fmt.Errorf("the memory backend has no schema to migrate")
			}
			// opening a SQL backend applies migrations
			result, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer result.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", result.Type)
			return nil
		},
	}
}

func newLoadCommand(a *app) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "load <fixture.json>",
		Short: "Bulk-load a JSON dataset into the configured database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if backend.BackendType(a.cfg.DataBackend) == backend.MemoryBackend {
				return fmt.Errorf("the memory backend reads FIXTURE_PATH at start-up; nothing to load into")
			}
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}

			result, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer result.Close()

			if err := result.Backend.Load(cmd.Context(), ds); err != nil {
				return fmt.Errorf("loading %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d vendors, %d customers, %d invoices, %d line items, %d payments\n",
				len(ds.Vendors), len(ds.Customers), len(ds.Invoices), len(ds.LineItems), len(ds.Payments))

			if notify {
				return a.publish(cmd, amqp.EntityAll)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "publish a data-changed notification after loading")
	return cmd
}

func readDataset(path string) (core.Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("reading dataset: %w", err)
	}
	var ds core.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return core.Dataset{}, fmt.Errorf("decoding dataset %s: %w", path, err)
	}
	return ds, nil
}

func newNotifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notify [entity]",
		Short: "Publish a data-changed notification so servers drop cached results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity := amqp.EntityAll
			if len(args) > 0 {
				entity = args[0]
			}
			return a.publish(cmd, entity)
		},
	}
}

func (a *app) publish(cmd *cobra.Command, entity string) error {
	if !a.cfg.AMQPEnabled() {
		return fmt.Errorf("AMQP_URL is not set")
	}
	client := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange)
	defer client.Close()

	if err := client.PublishDataChanged(cmd.Context(), entity); err != nil {
		return fmt.Errorf("publishing data-changed notification: %w", err)
	}
	a.logger.Info("Published data-changed notification", "entity", entity, "exchange", a.cfg.AMQPExchange)
	fmt.Fprintf(cmd.OutOrStdout(), "notified %s\n", entity)
	return nil
}
