package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/railjobs/core/events"
	coremetrics "github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/infra/logger"
	"github.com/kilianp07/railjobs/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards cycle, task
// and drop events to sink. It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.CycleSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev, time.Now()); err != nil {
					log.Warnf("metrics sink: %v", err)
				}
			}
		}
	}()
}

func record(sink coremetrics.CycleSink, ev eventbus.Event, now time.Time) error {
	switch e := ev.(type) {
	case events.CycleEvent:
		r := coremetrics.CycleReport{
			Seed:     e.Seed,
			Trigger:  e.Trigger,
			Consumed: e.Consumed,
			Deleted:  e.Deleted,
			Tasks:    e.Tasks,
			Duration: e.Duration,
			Time:     now,
		}
		if e.Err != nil {
			r.Aborted, r.Error = true, e.Err.Error()
		}
		return sink.RecordCycle(r)
	case events.TaskEvent:
		rec, ok := sink.(coremetrics.TaskRecorder)
		if !ok {
			return nil
		}
		cars := e.Proposal.Cars()
		return rec.RecordTask(coremetrics.TaskRecord{
			ProposalID:  e.Proposal.ID.String(),
			TaskID:      e.Task.ID,
			Kind:        e.Proposal.Kind,
			Source:      e.Proposal.Source,
			Destination: e.Proposal.Destination,
			Cars:        len(cars),
			Length:      model.TrainLength(cars, 0),
			Declined:    e.Err != nil,
			Time:        now,
		})
	case events.DroppedRunEvent:
		rec, ok := sink.(coremetrics.DroppedRunRecorder)
		if !ok {
			return nil
		}
		return rec.RecordDroppedRun(coremetrics.DroppedRunRecord{
			Station: e.Station,
			Cars:    len(e.Cars),
			Reason:  e.Reason,
			Time:    now,
		})
	}
	return nil
}
