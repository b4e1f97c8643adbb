package simulator

import "errors"

// Config locates the world file and tunes track lookup.
type Config struct {
	Path string `json:"path"`
	// NamedTrackRadius is the maximum distance in meters between the first
	// car of a consist and a track anchor.
	NamedTrackRadius float64 `json:"named_track_radius"`
	// CarSeparation is the coupling gap used when laying out cars.
	CarSeparation float64 `json:"car_separation"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.NamedTrackRadius <= 0 {
		c.NamedTrackRadius = 150
	}
	if c.CarSeparation <= 0 {
		c.CarSeparation = 0.3
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Path == "" {
		return errors.New("world.path is required")
	}
	return nil
}
