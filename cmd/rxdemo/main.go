package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	reactive "github.com/iamtaegu/reactiveProgramming"
	"github.com/iamtaegu/reactiveProgramming/rx"
	"github.com/iamtaegu/reactiveProgramming/scheduler"
	"github.com/iamtaegu/reactiveProgramming/taco"
)

var log = reactive.NewLogger("rxdemo")

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rxdemo",
		Short:         "Reactive streams playground",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				return nil
			}
			return reactive.LoadConfig(path)
		},
	}
	rootCmd.PersistentFlags().String("config", "", "config file (yaml, json, toml)")
	rootCmd.PersistentFlags().String("data-dir", "", "taco store directory, in memory when empty")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the pipelines run understands",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range scenarioNames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", name, scenarios[name].desc)
			}
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:       "run <scenario>",
		Short:     "Run one pipeline and print its items",
		Args:      cobra.ExactArgs(1),
		ValidArgs: scenarioNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, ok := scenarios[args[0]]
			if !ok {
				return fmt.Errorf("unknown scenario %q, see rxdemo list", args[0])
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return printAll(ctx, cmd, sc.build(scheduler.NewTimer()))
		},
	})

	rootCmd.AddCommand(tacoCommand())
	return rootCmd
}

func printAll[T any](ctx context.Context, cmd *cobra.Command, pub rx.Publisher[T]) error {
	for sig := range rx.ToChan(ctx, pub, 1) {
		switch {
		case sig.IsNext():
			fmt.Fprintln(cmd.OutOrStdout(), sig.Value)
		case sig.IsError():
			return sig.Err
		}
	}
	return nil
}

func tacoCommand() *cobra.Command {
	tacoCmd := &cobra.Command{Use: "tacos", Short: "Taco design store"}

	withStore := func(cmd *cobra.Command, f func(context.Context, *taco.Designs) error) error {
		dir, _ := cmd.Flags().GetString("data-dir")
		store, err := taco.OpenFromSettings(dir)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.WithError(err).Warn("closing taco store")
			}
		}()
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return f(ctx, taco.NewDesigns(store))
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Save the designs of a yaml seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			tacos, err := taco.LoadSeed(file)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, d *taco.Designs) error {
				return printAll(ctx, cmd, d.Post(ctx, rx.FromSlice(tacos)))
			})
		},
	}
	seedCmd.Flags().String("file", "seed.yaml", "seed file")
	_ = seedCmd.MarkFlagFilename("file", "yaml", "yml")
	tacoCmd.AddCommand(seedCmd)

	tacoCmd.AddCommand(&cobra.Command{
		Use:   "recent",
		Short: "Print the most recent designs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, d *taco.Designs) error {
				return printAll(ctx, cmd, d.Recent(ctx))
			})
		},
	})

	tacoCmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Print one design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withStore(cmd, func(ctx context.Context, d *taco.Designs) error {
				found := false
				err := printAll(ctx, cmd, rx.Via(d.ByID(ctx, id), rx.Map(func(t taco.Taco) taco.Taco {
					found = true
					return t
				})))
				if err == nil && !found {
					fmt.Fprintf(cmd.OutOrStdout(), "no taco %d\n", id)
				}
				return err
			})
		},
	})
	return tacoCmd
}
