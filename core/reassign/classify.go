package reassign

import (
	"fmt"

	"github.com/kilianp07/railjobs/core/model"
)

// DroppedRun describes cars left idle during a cycle.
type DroppedRun struct {
	Station model.StationID
	Cars    []model.Car
	Err     error
}

// Reason is the short label of the drop cause.
func (d DroppedRun) Reason() string { return reason(d.Err) }

// loadableRun is a run of one car type that the station can load.
type loadableRun struct {
	carType model.CarTypeID
	cars    []model.Car
	groups  []model.CargoGroup
}

func (r loadableRun) supports(groupID string) bool {
	for _, g := range r.groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

// divideEmptyRuns splits empty runs into sets of loadable car-type runs and
// runs bound for stations that load them. A set or a run never spans a
// change between the two, so coupling order holds inside each.
func (x *CargoIndex) divideEmptyRuns(s model.Station, runs [][]model.Car) (loadable [][]loadableRun, haul [][]CarRelations, dropped []DroppedRun) {
	for _, run := range runs {
		var curLoad []loadableRun
		var curHaul []CarRelations
		flush := func() {
			if curLoad != nil {
				loadable = append(loadable, curLoad)
				curLoad = nil
			}
			if curHaul != nil {
				haul = append(haul, curHaul)
				curHaul = nil
			}
		}
		for _, typed := range GroupConsecutive(run, func(c model.Car) model.CarTypeID { return c.Type }) {
			if groups := x.OutgoingGroupsFor(s, typed.Key); len(groups) > 0 {
				if curLoad == nil {
					flush()
					curLoad = []loadableRun{}
				}
				curLoad = append(curLoad, loadableRun{carType: typed.Key, cars: typed.Items, groups: groups})
				continue
			}
			if dests := x.EmptyDestinations(typed.Key); len(dests) > 0 {
				if curHaul == nil {
					flush()
					curHaul = []CarRelations{}
				}
				for _, c := range typed.Items {
					curHaul = append(curHaul, CarRelations{Car: c, Relations: dests})
				}
				continue
			}
			flush()
			dropped = append(dropped, DroppedRun{
				Station: s.ID,
				Cars:    typed.Items,
				Err:     fmt.Errorf("%w: no station loads car type %s", ErrNoDestination, typed.Key),
			})
		}
		flush()
	}
	return loadable, haul, dropped
}

// divideLoadedRuns splits loaded runs into cars the station can unload and
// cars to transport to a station receiving their cargo.
func (x *CargoIndex) divideLoadedRuns(s model.Station, runs [][]model.Car) (unload, transport [][]CarRelations, dropped []DroppedRun) {
	for _, run := range runs {
		var curUnload, curTransport, curDrop []CarRelations
		flush := func() {
			if curUnload != nil {
				unload = append(unload, curUnload)
				curUnload = nil
			}
			if curTransport != nil {
				transport = append(transport, curTransport)
				curTransport = nil
			}
			if curDrop != nil {
				cars := make([]model.Car, len(curDrop))
				for i, cr := range curDrop {
					cars[i] = cr.Car
				}
				dropped = append(dropped, DroppedRun{
					Station: s.ID,
					Cars:    cars,
					Err:     fmt.Errorf("%w: no station receives cargo %q", ErrNoDestination, cars[0].Cargo),
				})
				curDrop = nil
			}
		}
		for _, c := range run {
			if sources := x.IncomingRelations(s, c.Cargo); len(sources) > 0 {
				if curUnload == nil {
					flush()
					curUnload = []CarRelations{}
				}
				curUnload = append(curUnload, CarRelations{Car: c, Relations: sources})
				continue
			}
			if dests := x.CargoDestinations(c.Cargo); len(dests) > 0 {
				if curTransport == nil {
					flush()
					curTransport = []CarRelations{}
				}
				curTransport = append(curTransport, CarRelations{Car: c, Relations: dests})
				continue
			}
			if curDrop == nil {
				flush()
				curDrop = []CarRelations{}
			}
			curDrop = append(curDrop, CarRelations{Car: c})
		}
		flush()
	}
	return unload, transport, dropped
}
