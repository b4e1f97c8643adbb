package cycles

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/railjobs/core/cyclelog"
	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/core/reassign"
)

// RegenerateFunc runs one cycle with the given seed. A zero seed lets the
// caller draw one.
type RegenerateFunc func(ctx context.Context, seed int64, ignore []model.CarID) (reassign.CycleResult, error)

func authorized(r *http.Request, token string) bool {
	return token == "" || r.Header.Get("Authorization") == "Bearer "+token
}

// NewHistoryHandler exposes the cycle log via GET /api/cycles.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewHistoryHandler(store cyclelog.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []cyclelog.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	})
}

func parseQuery(r *http.Request) (cyclelog.Query, error) {
	v := r.URL.Query()
	q := cyclelog.Query{
		Trigger: v.Get("trigger"),
		CarID:   model.CarID(v.Get("car_id")),
		Station: model.StationID(v.Get("station")),
	}
	var err error
	if s := v.Get("start"); s != "" {
		if q.Start, err = time.Parse(time.RFC3339, s); err != nil {
			return q, err
		}
	}
	if s := v.Get("end"); s != "" {
		if q.End, err = time.Parse(time.RFC3339, s); err != nil {
			return q, err
		}
	}
	if s := v.Get("aborted"); s != "" {
		if q.AbortedOnly, err = strconv.ParseBool(s); err != nil {
			return q, err
		}
	}
	return q, nil
}

// NewRegenerateHandler runs a cycle on POST /api/cycles/regenerate. The
// optional seed and repeated ignore parameters are passed through. The
// response is the cycle record, with status 500 when the cycle aborted.
func NewRegenerateHandler(run RegenerateFunc, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var seed int64
		if s := r.URL.Query().Get("seed"); s != "" {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				http.Error(w, "invalid seed", http.StatusBadRequest)
				return
			}
			seed = n
		}
		var ignore []model.CarID
		for _, id := range r.URL.Query()["ignore"] {
			ignore = append(ignore, model.CarID(id))
		}
		res, err := run(r.Context(), seed, ignore)
		status := http.StatusOK
		if err != nil {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, cyclelog.FromResult(res, err))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
