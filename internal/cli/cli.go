package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Additional-Code/orderdesk/internal/app"
	"github.com/Additional-Code/orderdesk/internal/seeder"
	serviceorder "github.com/Additional-Code/orderdesk/internal/service/order"
)

const stopTimeout = 10 * time.Second

// NewRootCommand builds the root orderdesk CLI command.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "orderdesk",
		Short:         "Order records kept in a flat CSV file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newStartCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newOrdersCmd())

	return root
}

// Execute runs the orderdesk CLI until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "start",
		Aliases: []string{"run", "serve"},
		Short:   "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Module)
		},
	}
}

func newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Manage background workers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Consume order audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUntilDone(cmd.Context(), app.Worker)
		},
	})
	return cmd
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Add sample orders, skipping ids already present",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed *seeder.Seeder
			opts := fx.Options(app.Seed, fx.Populate(&seed))
			return runWithApp(cmd.Context(), opts, func(ctx context.Context) error {
				created, err := seed.Orders(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d orders\n", created)
				return nil
			})
		},
	}
}

func newOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect the orders file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of stored orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperations(cmd.Context(), func(ctx context.Context, ops serviceorder.Operations) error {
				n, err := ops.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "hash",
		Short: "Print the SHA-256 digest of the orders file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withOperations(cmd.Context(), func(ctx context.Context, ops serviceorder.Operations) error {
				sum, err := ops.ContentHash(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	})

	snapshot := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a zip archive of the orders file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withOperations(cmd.Context(), func(ctx context.Context, ops serviceorder.Operations) error {
				snap, err := ops.CompressSnapshot(ctx)
				if err != nil {
					return err
				}
				target := out
				if target == "" {
					target = snap.Name
				}
				if err := os.WriteFile(target, snap.Data, 0o644); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", filepath.Clean(target), len(snap.Data))
				return nil
			})
		},
	}
	snapshot.Flags().String("out", "", "Destination file (defaults to the configured snapshot name)")
	cmd.AddCommand(snapshot)

	return cmd
}

func withOperations(ctx context.Context, fn func(context.Context, serviceorder.Operations) error) error {
	var ops serviceorder.Operations
	opts := fx.Options(app.Core, fx.Populate(&ops))
	return runWithApp(ctx, opts, func(ctx context.Context) error {
		return fn(ctx, ops)
	})
}

func runUntilDone(ctx context.Context, opts fx.Option) error {
	application := fx.New(opts)
	if err := application.Start(ctx); err != nil {
		return err
	}

	var exitErr error
	select {
	case <-ctx.Done():
	case sig := <-application.Wait():
		if sig.ExitCode != 0 {
			exitErr = fmt.Errorf("application shut down with exit code %d", sig.ExitCode)
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return errors.Join(exitErr, application.Stop(stopCtx))
}

func runWithApp(ctx context.Context, opts fx.Option, fn func(context.Context) error) error {
	application := fx.New(opts, fx.NopLogger)
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = application.Stop(stopCtx)
	}()
	return fn(ctx)
}
