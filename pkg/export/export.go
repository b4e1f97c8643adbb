package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/railjobs/core/cyclelog"
)

// Formats lists the accepted output formats.
var Formats = []string{"json", "csv"}

// Write encodes records to w in the named format.
func Write(w io.Writer, format string, recs []cyclelog.Record) error {
	switch format {
	case "json", "":
		return WriteJSON(w, recs)
	case "csv":
		return WriteCSV(w, recs)
	}
	return fmt.Errorf("unknown export format %q (known: %v)", format, Formats)
}

// WriteJSON writes one record per line.
func WriteJSON(w io.Writer, recs []cyclelog.Record) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteCSV writes one summary row per cycle.
func WriteCSV(w io.Writer, recs []cyclelog.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "seed", "trigger", "duration_ms", "tasks", "cars", "deleted", "dropped_cars", "error"}); err != nil {
		return err
	}
	for _, r := range recs {
		var cars, dropped int
		for _, t := range r.Tasks {
			cars += len(t.Cars)
		}
		for _, d := range r.Dropped {
			dropped += len(d.Cars)
		}
		row := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatInt(r.Seed, 10),
			r.Trigger,
			strconv.FormatFloat(float64(r.Duration.Microseconds())/1000, 'f', -1, 64),
			strconv.Itoa(len(r.Tasks)),
			strconv.Itoa(cars),
			strconv.Itoa(len(r.Deleted)),
			strconv.Itoa(dropped),
			r.Error,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
