package reassign

import (
	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
)

// CargoIndex answers cargo and destination queries for one cycle. It is
// rebuilt from the world every cycle and never cached across cycles.
type CargoIndex struct {
	world    host.World
	stations []model.Station
	byID     map[model.StationID]int
	loadable map[model.CarTypeID][]model.CargoType
}

// NewCargoIndex snapshots the station list of w. Relations without a group
// name inherit the name of the group declaring them.
func NewCargoIndex(w host.World) *CargoIndex {
	src := w.Stations()
	x := &CargoIndex{
		world:    w,
		stations: make([]model.Station, len(src)),
		byID:     make(map[model.StationID]int, len(src)),
		loadable: make(map[model.CarTypeID][]model.CargoType),
	}
	for i, s := range src {
		s.Outgoing = normalizeGroups(s.Outgoing)
		s.Incoming = normalizeGroups(s.Incoming)
		x.stations[i] = s
		x.byID[s.ID] = i
	}
	return x
}

func normalizeGroups(groups []model.CargoGroup) []model.CargoGroup {
	out := make([]model.CargoGroup, len(groups))
	for i, g := range groups {
		rels := make([]model.Relation, len(g.Relations))
		for j, r := range g.Relations {
			if r.Group == "" {
				r.Group = g.ID
			}
			rels[j] = r
		}
		g.Relations = rels
		out[i] = g
	}
	return out
}

// Station returns the indexed station with the given ID.
func (x *CargoIndex) Station(id model.StationID) (model.Station, bool) {
	i, ok := x.byID[id]
	if !ok {
		return model.Station{}, false
	}
	return x.stations[i], true
}

// Stations returns every indexed station.
func (x *CargoIndex) Stations() []model.Station {
	return x.stations
}

func (x *CargoIndex) carTypeCargo(t model.CarTypeID) []model.CargoType {
	if c, ok := x.loadable[t]; ok {
		return c
	}
	c := x.world.LoadableCargo(t)
	x.loadable[t] = c
	return c
}

// LoadableCargo returns the cargo types of g that car type t can carry, in
// the group's order.
func (x *CargoIndex) LoadableCargo(g model.CargoGroup, t model.CarTypeID) []model.CargoType {
	can := make(map[model.CargoType]struct{})
	for _, c := range x.carTypeCargo(t) {
		can[c] = struct{}{}
	}
	var out []model.CargoType
	for _, c := range g.CargoTypes {
		if _, ok := can[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// OutgoingGroupsFor returns the outgoing groups of s that apply to car type t
// and have at least one destination.
func (x *CargoIndex) OutgoingGroupsFor(s model.Station, t model.CarTypeID) []model.CargoGroup {
	var out []model.CargoGroup
	for _, g := range s.Outgoing {
		if len(g.Relations) > 0 && len(x.LoadableCargo(g, t)) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// EmptyDestinations lists the stations that load car type t. The length cap
// of each relation is the largest destination cap among the applicable
// groups of that station.
func (x *CargoIndex) EmptyDestinations(t model.CarTypeID) []model.Relation {
	var out []model.Relation
	for _, s := range x.stations {
		groups := x.OutgoingGroupsFor(s, t)
		if len(groups) == 0 {
			continue
		}
		maxLen := 0.0
		for _, g := range groups {
			for _, r := range g.Relations {
				maxLen = max(maxLen, r.MaxTrainLength)
			}
		}
		out = append(out, model.Relation{Station: s.ID, MaxTrainLength: maxLen})
	}
	return out
}

// CargoDestinations lists every outgoing relation, across all stations, of
// groups carrying cargo ct.
func (x *CargoIndex) CargoDestinations(ct model.CargoType) []model.Relation {
	var out []model.Relation
	for _, s := range x.stations {
		for _, g := range s.Outgoing {
			if g.Carries(ct) {
				out = append(out, g.Relations...)
			}
		}
	}
	return out
}

// IncomingRelations lists the source relations of the incoming groups of s
// that accept cargo ct.
func (x *CargoIndex) IncomingRelations(s model.Station, ct model.CargoType) []model.Relation {
	var out []model.Relation
	for _, g := range s.Incoming {
		if g.Carries(ct) {
			out = append(out, g.Relations...)
		}
	}
	return out
}

func incomingGroup(s model.Station, id string) (model.CargoGroup, bool) {
	for _, g := range s.Incoming {
		if g.ID == id {
			return g, true
		}
	}
	return model.CargoGroup{}, false
}
