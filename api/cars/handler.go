package cars

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/railjobs/core/model"
)

// IdleList returns the cars currently on the idle list.
type IdleList interface {
	Snapshot() []model.Car
}

// Classifier derives the reassign status of a car.
type Classifier interface {
	Classify(model.Car) model.ReassignStatus
}

// IdleEntry is one idle car as served by the API.
type IdleEntry struct {
	ID      model.CarID     `json:"id"`
	Type    model.CarTypeID `json:"type"`
	Consist model.ConsistID `json:"consist"`
	Cargo   model.CargoType `json:"cargo,omitempty"`
	Status  string          `json:"status"`
}

// NewIdleHandler returns an HTTP handler exposing the idle list via GET /api/cars/idle.
// The optional status and type parameters filter the result.
func NewIdleHandler(idle IdleList, cls Classifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status := r.URL.Query().Get("status")
		typ := model.CarTypeID(r.URL.Query().Get("type"))
		entries := []IdleEntry{}
		for _, c := range idle.Snapshot() {
			e := IdleEntry{ID: c.ID, Type: c.Type, Consist: c.Consist, Status: cls.Classify(c).String()}
			if !c.Empty() {
				e.Cargo = c.Cargo
			}
			if status != "" && e.Status != status {
				continue
			}
			if typ != "" && e.Type != typ {
				continue
			}
			entries = append(entries, e)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
