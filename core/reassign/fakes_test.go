package reassign

import (
	"context"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
)

type fakeWorld struct {
	stations []model.Station
	cargo    map[model.CarTypeID][]model.CargoType
	// trackOf maps the first car of a query to the named track under it.
	trackOf map[model.CarID]model.Track
	free    map[model.TrackID]float64
}

func (w *fakeWorld) Stations() []model.Station { return w.stations }

func (w *fakeWorld) LoadableCargo(t model.CarTypeID) []model.CargoType { return w.cargo[t] }

func (w *fakeWorld) NearestNamedTrack(cars []model.Car) (model.Track, bool) {
	if len(cars) == 0 {
		return model.Track{}, false
	}
	t, ok := w.trackOf[cars[0].ID]
	return t, ok
}

func (w *fakeWorld) FreeSpace(id model.TrackID) float64 { return w.free[id] }

// place puts every car of the consists on track.
func (w *fakeWorld) place(track model.Track, consists ...model.Consist) {
	if w.trackOf == nil {
		w.trackOf = map[model.CarID]model.Track{}
	}
	for _, cs := range consists {
		for _, c := range cs.Cars {
			w.trackOf[c.ID] = track
		}
	}
}

type fakeIdle struct {
	mu      sync.Mutex
	cars    []model.Car
	deleted []model.Car
}

func (l *fakeIdle) Snapshot() []model.Car {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Car(nil), l.cars...)
}

func (l *fakeIdle) Remove(ids ...model.CarID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	drop := idSet(ids)
	kept := l.cars[:0]
	for _, c := range l.cars {
		if !drop[c.ID] {
			kept = append(kept, c)
		}
	}
	l.cars = kept
}

func (l *fakeIdle) Delete(cars []model.Car) error {
	l.mu.Lock()
	l.deleted = append(l.deleted, cars...)
	l.mu.Unlock()
	l.Remove(model.CarIDs(cars)...)
	return nil
}

func (l *fakeIdle) contains(id model.CarID) bool {
	for _, c := range l.Snapshot() {
		if c.ID == id {
			return true
		}
	}
	return false
}

type fakeConsists map[model.CarID]model.Consist

func (f fakeConsists) ConsistOf(id model.CarID) (model.Consist, bool) {
	cs, ok := f[id]
	return cs, ok
}

func consistIndex(consists ...model.Consist) fakeConsists {
	out := fakeConsists{}
	for _, cs := range consists {
		for _, c := range cs.Cars {
			out[c.ID] = cs
		}
	}
	return out
}

type fakeObserver struct {
	pos     r3.Vec
	present bool
}

func (o fakeObserver) Position() (r3.Vec, bool) { return o.pos, o.present }
func (o fakeObserver) FastTravelling() bool     { return false }

type fakeBuilder struct {
	mu    sync.Mutex
	built []model.TaskProposal
	fail  func(p model.TaskProposal) error
}

func (b *fakeBuilder) Build(_ context.Context, p model.TaskProposal) (model.Task, error) {
	if b.fail != nil {
		if err := b.fail(p); err != nil {
			return model.Task{}, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built = append(b.built, p)
	return model.Task{ID: fmt.Sprintf("T%d", len(b.built)), ProposalID: p.ID, Kind: p.Kind}, nil
}

type fakeOwner struct{ converted []model.CarID }

func (o *fakeOwner) ConvertToManaged(cars []model.Car) error {
	o.converted = append(o.converted, model.CarIDs(cars)...)
	return nil
}

type fakeSpecial struct {
	target  host.SpecialTarget
	maxCars int
	asked   [][]model.CarID
}

func (s *fakeSpecial) IsSpecial(c model.Car) bool { return c.Type == "coach" }

func (s *fakeSpecial) Resolve(_ model.Station, cars []model.Car) (host.SpecialTarget, bool) {
	s.asked = append(s.asked, model.CarIDs(cars))
	return s.target, len(cars) <= s.maxCars
}

type fixture struct {
	world    *fakeWorld
	idle     *fakeIdle
	consists fakeConsists
	builder  *fakeBuilder
	owner    *fakeOwner
	observer fakeObserver
}

func newFixture(w *fakeWorld, consists ...model.Consist) *fixture {
	f := &fixture{
		world:    w,
		idle:     &fakeIdle{},
		consists: consistIndex(consists...),
		builder:  &fakeBuilder{},
		owner:    &fakeOwner{},
	}
	for _, cs := range consists {
		f.idle.cars = append(f.idle.cars, cs.Cars...)
	}
	return f
}

func (f *fixture) engine(cfg Config, opts ...Option) *Engine {
	e, err := New(cfg, Deps{
		World:    f.world,
		Idle:     f.idle,
		Consists: f.consists,
		Observer: f.observer,
		Builder:  f.builder,
		Owner:    f.owner,
	}, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

func track(yard model.StationID, name string, kind model.TrackKind, length float64) model.Track {
	return model.Track{ID: model.TrackID{Yard: yard, Name: name}, Kind: kind, Length: length}
}

// cars builds regular cars named prefix1..prefixN of one type.
func cars(prefix string, n int, t model.CarTypeID, length float64, cargo model.CargoType) []model.Car {
	out := make([]model.Car, n)
	for i := range out {
		out[i] = model.Car{
			ID:      model.CarID(fmt.Sprintf("%s%d", prefix, i+1)),
			Type:    t,
			Length:  length,
			Regular: true,
			Cargo:   cargo,
		}
		if cargo != model.NoCargo {
			out[i].CargoAmount = 1
		}
	}
	return out
}

func consist(id model.ConsistID, groups ...[]model.Car) model.Consist {
	cs := model.Consist{ID: id}
	for _, g := range groups {
		for _, c := range g {
			c.Consist = id
			cs.Cars = append(cs.Cars, c)
		}
	}
	return cs
}
