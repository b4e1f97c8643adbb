package reassign

import "errors"

// Config tunes the engine.
type Config struct {
	// MinObserverDistance is the distance in meters every car of a consist
	// must keep from the observer before it is reassigned.
	MinObserverDistance float64 `json:"min_observer_distance"`
	// CarSeparation is the coupling gap in meters added per car.
	CarSeparation float64 `json:"car_separation"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.MinObserverDistance == 0 {
		c.MinObserverDistance = 800
	}
	if c.CarSeparation == 0 {
		c.CarSeparation = 0.3
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.MinObserverDistance < 0 {
		return errors.New("reassign.min_observer_distance must be non-negative")
	}
	if c.CarSeparation < 0 {
		return errors.New("reassign.car_separation must be non-negative")
	}
	return nil
}
