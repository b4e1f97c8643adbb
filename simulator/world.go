package simulator

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kilianp07/railjobs/core/model"
)

type consist struct {
	id   model.ConsistID
	cars []model.CarID
}

// World holds the simulated state. All methods are safe for concurrent use.
type World struct {
	mu sync.Mutex

	radius   float64
	stations []model.Station
	cargo    map[model.CarTypeID][]model.CargoType
	special  map[model.CarTypeID]bool
	anchors  map[model.TrackID]r3.Vec
	free     map[model.TrackID]float64

	cars     map[model.CarID]model.Car
	consists []consist
	idle     []model.CarID

	observer  *r3.Vec
	traveling bool

	tasks []BuiltTask
}

// Load reads and builds the world described by cfg.
func Load(cfg Config) (*World, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := ReadFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	return New(f, cfg)
}

// New builds a world from a decoded file.
func New(f File, cfg Config) (*World, error) {
	cfg.SetDefaults()
	w := &World{
		radius:  cfg.NamedTrackRadius,
		cargo:   map[model.CarTypeID][]model.CargoType{},
		special: map[model.CarTypeID]bool{},
		anchors: map[model.TrackID]r3.Vec{},
		free:    map[model.TrackID]float64{},
		cars:    map[model.CarID]model.Car{},
	}
	for id, ct := range f.CarTypes {
		w.cargo[id] = ct.Cargo
		w.special[id] = ct.Special
	}
	if f.Observer != nil {
		pos := f.Observer.Position.R3()
		w.observer = &pos
		w.traveling = f.Observer.FastTravelling
	}
	for _, sf := range f.Stations {
		s, err := w.station(sf)
		if err != nil {
			return nil, err
		}
		w.stations = append(w.stations, s)
	}
	for _, cf := range f.Consists {
		if err := w.addConsist(cf, cfg.CarSeparation); err != nil {
			return nil, err
		}
	}
	if f.Idle == nil {
		for _, cs := range w.consists {
			for _, id := range cs.cars {
				if !w.cars[id].HasTask {
					w.idle = append(w.idle, id)
				}
			}
		}
	}
	for _, id := range f.Idle {
		if _, ok := w.cars[id]; !ok {
			return nil, fmt.Errorf("idle car %s does not exist", id)
		}
		w.idle = append(w.idle, id)
	}
	return w, nil
}

func (w *World) station(sf StationFile) (model.Station, error) {
	s := model.Station{
		ID:       sf.ID,
		Name:     sf.Name,
		Position: sf.Position.R3(),
		Rules:    sf.Rules,
	}
	for _, tf := range sf.Tracks {
		kind, err := model.ParseTrackKind(tf.Kind)
		if err != nil {
			return s, fmt.Errorf("station %s track %s: %w", sf.ID, tf.Name, err)
		}
		t := model.Track{ID: model.TrackID{Yard: sf.ID, Name: tf.Name}, Kind: kind, Length: tf.Length}
		s.Tracks = append(s.Tracks, t)
		w.anchors[t.ID] = tf.Anchor.R3()
		w.free[t.ID] = tf.Length
		if tf.Free != nil {
			w.free[t.ID] = *tf.Free
		}
	}
	group := func(g GroupFile) (model.CargoGroup, error) {
		out := model.CargoGroup{ID: g.ID, CargoTypes: g.Cargo}
		for _, r := range g.Relations {
			out.Relations = append(out.Relations, model.Relation{Group: g.ID, Station: r.Station, MaxTrainLength: r.MaxTrainLength})
		}
		for _, name := range g.Warehouse {
			id := model.TrackID{Yard: sf.ID, Name: name}
			if _, ok := s.Track(id); !ok {
				return out, fmt.Errorf("station %s group %s: unknown warehouse track %s", sf.ID, g.ID, name)
			}
			out.WarehouseTracks = append(out.WarehouseTracks, id)
		}
		return out, nil
	}
	for _, g := range sf.Outgoing {
		cg, err := group(g)
		if err != nil {
			return s, err
		}
		s.Outgoing = append(s.Outgoing, cg)
	}
	for _, g := range sf.Incoming {
		cg, err := group(g)
		if err != nil {
			return s, err
		}
		s.Incoming = append(s.Incoming, cg)
	}
	return s, nil
}

func (w *World) addConsist(cf ConsistFile, separation float64) error {
	cs := consist{id: cf.ID}
	pos := cf.Position.R3()
	for _, c := range cf.Cars {
		if _, dup := w.cars[c.ID]; dup {
			return fmt.Errorf("car %s declared twice", c.ID)
		}
		c.Consist = cf.ID
		c.Position = pos
		pos = r3.Add(pos, r3.Vec{X: c.Length + separation})
		w.cars[c.ID] = c
		cs.cars = append(cs.cars, c.ID)
	}
	w.consists = append(w.consists, cs)
	return nil
}

// Stations returns a copy of the station list.
func (w *World) Stations() []model.Station {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.stations)
}

func (w *World) LoadableCargo(t model.CarTypeID) []model.CargoType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.cargo[t])
}

// NearestNamedTrack returns the track whose anchor is closest to the first
// car, within the configured radius.
func (w *World) NearestNamedTrack(cars []model.Car) (model.Track, bool) {
	if len(cars) == 0 {
		return model.Track{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	best, bestDist := model.Track{}, math.Inf(1)
	for _, s := range w.stations {
		for _, t := range s.Tracks {
			d := r3.Norm(r3.Sub(w.anchors[t.ID], cars[0].Position))
			if d <= w.radius && d < bestDist {
				best, bestDist = t, d
			}
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

func (w *World) FreeSpace(id model.TrackID) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.free[id]
}

// Position returns the observer position, or false when no observer is
// present.
func (w *World) Position() (r3.Vec, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.observer == nil {
		return r3.Vec{}, false
	}
	return *w.observer, true
}

func (w *World) FastTravelling() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.traveling
}

// MoveObserver places the observer at pos, or removes it when pos is nil.
func (w *World) MoveObserver(pos *r3.Vec) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observer = pos
}

// SetFastTravelling toggles fast travel.
func (w *World) SetFastTravelling(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.traveling = on
}

// Car returns the current state of a car.
func (w *World) Car(id model.CarID) (model.Car, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.cars[id]
	return c, ok
}

func (w *World) ConsistOf(id model.CarID) (model.Consist, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, cs := range w.consists {
		if slices.Contains(cs.cars, id) {
			return w.snapshot(cs), true
		}
	}
	return model.Consist{}, false
}

func (w *World) snapshot(cs consist) model.Consist {
	out := model.Consist{ID: cs.id, Cars: make([]model.Car, len(cs.cars))}
	for i, id := range cs.cars {
		out.Cars[i] = w.cars[id]
	}
	return out
}

// Snapshot returns the cars of the idle list in list order.
func (w *World) Snapshot() []model.Car {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Car, 0, len(w.idle))
	for _, id := range w.idle {
		out = append(out, w.cars[id])
	}
	return out
}

func (w *World) Remove(ids ...model.CarID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeIdle(ids)
}

func (w *World) removeIdle(ids []model.CarID) {
	w.idle = slices.DeleteFunc(w.idle, func(id model.CarID) bool { return slices.Contains(ids, id) })
}

// Delete removes cars from the world. A consist losing inner cars is split
// into the runs that remain coupled.
func (w *World) Delete(cars []model.Car) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := model.CarIDs(cars)
	for _, id := range ids {
		if _, ok := w.cars[id]; !ok {
			return fmt.Errorf("delete unknown car %s", id)
		}
	}
	var out []consist
	for _, cs := range w.consists {
		out = append(out, w.split(cs, ids)...)
	}
	w.consists = out
	for _, id := range ids {
		delete(w.cars, id)
	}
	w.removeIdle(ids)
	return nil
}

func (w *World) split(cs consist, gone []model.CarID) []consist {
	var out []consist
	cur := consist{id: cs.id}
	flush := func() {
		if len(cur.cars) == 0 {
			return
		}
		if len(out) > 0 {
			cur.id = model.ConsistID(fmt.Sprintf("%s.%d", cs.id, len(out)))
			for _, id := range cur.cars {
				c := w.cars[id]
				c.Consist = cur.id
				w.cars[id] = c
			}
		}
		out = append(out, cur)
		cur = consist{}
	}
	for _, id := range cs.cars {
		if slices.Contains(gone, id) {
			flush()
			continue
		}
		cur.cars = append(cur.cars, id)
	}
	flush()
	return out
}

// ConvertToManaged clears the externally owned flag.
func (w *World) ConvertToManaged(cars []model.Car) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range cars {
		cur, ok := w.cars[c.ID]
		if !ok {
			return fmt.Errorf("convert unknown car %s", c.ID)
		}
		cur.ExternallyOwned = false
		w.cars[c.ID] = cur
	}
	return nil
}

// IsSpecial reports whether the car type is marked special.
func (w *World) IsSpecial(car model.Car) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.special[car.Type]
}

// File returns the current state in the YAML layout.
func (w *World) File() File {
	w.mu.Lock()
	defer w.mu.Unlock()
	f := File{CarTypes: map[model.CarTypeID]CarTypeFile{}, Idle: slices.Clone(w.idle)}
	if f.Idle == nil {
		f.Idle = []model.CarID{}
	}
	for id, cargo := range w.cargo {
		f.CarTypes[id] = CarTypeFile{Cargo: cargo, Special: w.special[id]}
	}
	if w.observer != nil {
		f.Observer = &ObserverFile{Position: fromR3(*w.observer), FastTravelling: w.traveling}
	}
	for _, s := range w.stations {
		f.Stations = append(f.Stations, w.stationFile(s))
	}
	for _, cs := range w.consists {
		snap := w.snapshot(cs)
		cf := ConsistFile{ID: cs.id, Cars: snap.Cars}
		if len(snap.Cars) > 0 {
			cf.Position = fromR3(snap.Cars[0].Position)
		}
		f.Consists = append(f.Consists, cf)
	}
	return f
}

func (w *World) stationFile(s model.Station) StationFile {
	sf := StationFile{ID: s.ID, Name: s.Name, Position: fromR3(s.Position), Rules: s.Rules}
	for _, t := range s.Tracks {
		free := w.free[t.ID]
		sf.Tracks = append(sf.Tracks, TrackFile{
			Name: t.ID.Name, Kind: t.Kind.String(), Length: t.Length, Free: &free, Anchor: fromR3(w.anchors[t.ID]),
		})
	}
	group := func(g model.CargoGroup) GroupFile {
		gf := GroupFile{ID: g.ID, Cargo: g.CargoTypes}
		for _, r := range g.Relations {
			gf.Relations = append(gf.Relations, RelationFile{Station: r.Station, MaxTrainLength: r.MaxTrainLength})
		}
		for _, id := range g.WarehouseTracks {
			gf.Warehouse = append(gf.Warehouse, id.Name)
		}
		return gf
	}
	for _, g := range s.Outgoing {
		sf.Outgoing = append(sf.Outgoing, group(g))
	}
	for _, g := range s.Incoming {
		sf.Incoming = append(sf.Incoming, group(g))
	}
	return sf
}
