package reassign

import (
	"fmt"
	"math/rand"

	"github.com/kilianp07/railjobs/core/model"
)

// pickTrack chooses a random track longer than trainLength, preferring
// tracks whose free space also exceeds it.
func (e *Engine) pickTrack(tracks []model.Track, trainLength float64, rng *rand.Rand) (model.Track, bool) {
	var long, free []model.Track
	for _, t := range tracks {
		if t.Length <= trainLength {
			continue
		}
		long = append(long, t)
		if e.deps.World.FreeSpace(t.ID) > trainLength {
			free = append(free, t)
		}
	}
	switch {
	case len(free) > 0:
		return randomElement(rng, free), true
	case len(long) > 0:
		return randomElement(rng, long), true
	}
	return model.Track{}, false
}

// pickWarehouse chooses a random warehouse track of s longer than trainLength.
func pickWarehouse(s model.Station, ids []model.TrackID, trainLength float64, rng *rand.Rand) (model.Track, bool) {
	var fit []model.Track
	for _, id := range ids {
		t, ok := s.Track(id)
		if ok && t.Length > trainLength {
			fit = append(fit, t)
		}
	}
	if len(fit) == 0 {
		return model.Track{}, false
	}
	return randomElement(rng, fit), true
}

// checkYard fails when track is not owned by station.
func checkYard(track model.TrackID, station model.StationID) error {
	if track.Yard != station {
		return fmt.Errorf("%w: track %s selected for station %s", ErrTrackStationMismatch, track, station)
	}
	return nil
}
