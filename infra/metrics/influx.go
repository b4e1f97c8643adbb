package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/infra/logger"
)

// InfluxSink writes cycle, task and drop records to InfluxDB using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.CycleSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordCycle writes one reassign_cycle point.
func (s *InfluxSink) RecordCycle(r coremetrics.CycleReport) error {
	p := write.NewPointWithMeasurement("reassign_cycle").
		AddTag("trigger", r.Trigger).
		AddTag("aborted", strconv.FormatBool(r.Aborted)).
		AddField("seed", r.Seed).
		AddField("consumed", r.Consumed).
		AddField("deleted", r.Deleted).
		AddField("tasks", r.Tasks).
		AddField("duration_ms", round3(r.Duration.Seconds()*1000))
	if r.Error != "" {
		p = p.AddField("error", r.Error)
	}
	return s.write(p.SetTime(r.Time))
}

// RecordTask writes one reassign_task point.
func (s *InfluxSink) RecordTask(r coremetrics.TaskRecord) error {
	p := write.NewPointWithMeasurement("reassign_task").
		AddTag("kind", r.Kind.String()).
		AddTag("source", string(r.Source)).
		AddTag("destination", string(r.Destination)).
		AddTag("declined", strconv.FormatBool(r.Declined)).
		AddField("proposal_id", r.ProposalID).
		AddField("task_id", r.TaskID).
		AddField("cars", r.Cars).
		AddField("length_m", round3(r.Length)).
		SetTime(r.Time)
	return s.write(p)
}

// RecordDroppedRun writes one reassign_dropped point.
func (s *InfluxSink) RecordDroppedRun(r coremetrics.DroppedRunRecord) error {
	p := write.NewPointWithMeasurement("reassign_dropped").
		AddTag("station", string(r.Station)).
		AddTag("reason", r.Reason).
		AddField("cars", r.Cars).
		SetTime(r.Time)
	return s.write(p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
