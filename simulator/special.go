package simulator

import (
	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
)

// PlatformStrategy sends special cars to a platform long enough for the
// run, trying the current station first.
type PlatformStrategy struct {
	w          *World
	separation float64
}

// NewPlatformStrategy returns nil when the world declares no special car
// type, so the engine runs without the extension.
func NewPlatformStrategy(w *World, separation float64) host.SpecialCarStrategy {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, special := range w.special {
		if special {
			return &PlatformStrategy{w: w, separation: separation}
		}
	}
	return nil
}

func (p *PlatformStrategy) IsSpecial(car model.Car) bool { return p.w.IsSpecial(car) }

func (p *PlatformStrategy) Resolve(station model.Station, cars []model.Car) (host.SpecialTarget, bool) {
	length := model.TrainLength(cars, p.separation)
	fits := func(s model.Station) (host.SpecialTarget, bool) {
		for _, t := range s.TracksOf(model.TrackPlatform) {
			if t.Length > length && p.w.FreeSpace(t.ID) > length {
				return host.SpecialTarget{Destination: s.ID, Track: t}, true
			}
		}
		return host.SpecialTarget{}, false
	}
	if target, ok := fits(station); ok {
		return target, true
	}
	for _, s := range p.w.Stations() {
		if s.ID == station.ID {
			continue
		}
		if target, ok := fits(s); ok {
			return target, true
		}
	}
	return host.SpecialTarget{}, false
}
