package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/railjobs/config"
	"github.com/kilianp07/railjobs/infra/logger"
	"github.com/kilianp07/railjobs/infra/mqtt"
	"github.com/kilianp07/railjobs/simulator"
)

var serveHostCmd = &cobra.Command{
	Use:   "serve-host",
	Short: "Build tasks requested over MQTT inside the simulated world",
	Args:  cobra.NoArgs,
	RunE:  serveHost,
}

func init() {
	rootCmd.AddCommand(serveHostCmd)
}

func serveHost(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.RemoteBuilder() {
		return fmt.Errorf("serve-host needs mqtt.broker")
	}
	logg := logger.NewWithOptions("host", logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console})
	world, err := simulator.Load(cfg.World)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	builder := simulator.NewBuilder(world, cfg.World.CarSeparation)
	built := builder.Subscribe()
	defer builder.Unsubscribe(built)

	resp, err := mqtt.NewResponder(cfg.MQTT, builder)
	if err != nil {
		return fmt.Errorf("mqtt responder: %w", err)
	}
	defer resp.Disconnect()
	logg.Infof("answering task requests on %s", cfg.MQTT.RequestTopic)

	for {
		select {
		case <-ctx.Done():
			if saveWorld {
				return simulator.WriteFile(cfg.World.Path, world.File())
			}
			return nil
		case bt := <-built:
			logg.Infof("built %s task %s with %d cars from %s to %s",
				bt.Task.Kind, bt.Task.ID, len(bt.Proposal.Cars()), bt.Proposal.Source, bt.Proposal.Destination)
		}
	}
}
