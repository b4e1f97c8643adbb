package plugins

import (
	"github.com/kilianp07/railjobs/config"
	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/infra/mqtt"
	"github.com/kilianp07/railjobs/simulator"
)

func init() {
	RegisterBuilder("memory", func(cfg *config.Config, w *simulator.World) (host.TaskBuilder, func(), error) {
		return simulator.NewBuilder(w, cfg.World.CarSeparation), nil, nil
	})
	RegisterBuilder("mqtt", func(cfg *config.Config, _ *simulator.World) (host.TaskBuilder, func(), error) {
		bridge, err := mqtt.NewTaskBridge(cfg.MQTT)
		if err != nil {
			return nil, nil, err
		}
		return bridge, bridge.Disconnect, nil
	})

	RegisterSpecial("platform", func(cfg *config.Config, w *simulator.World) host.SpecialCarStrategy {
		return simulator.NewPlatformStrategy(w, cfg.World.CarSeparation)
	})
}
