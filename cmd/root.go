package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/railjobs/app"
	"github.com/kilianp07/railjobs/config"
)

var (
	cfgPath   string
	saveWorld bool
)

var rootCmd = &cobra.Command{
	Use:   "railjobs",
	Short: "Idle car reassignment service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.PersistentFlags().BoolVar(&saveWorld, "save", false, "write the world state back to its file on exit")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return withService(func(svc *app.Service) error { return svc.Run(ctx) })
}

// withService loads the configuration, builds the service and runs fn.
func withService(fn func(*app.Service) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()
	if err := fn(svc); err != nil {
		return err
	}
	if saveWorld {
		if err := svc.SaveWorld(cfg.World.Path); err != nil {
			return fmt.Errorf("save world: %w", err)
		}
	}
	return nil
}
