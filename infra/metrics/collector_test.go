package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/railjobs/core/events"
	coremetrics "github.com/kilianp07/railjobs/core/metrics"
	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/internal/eventbus"
)

type memSink struct {
	mu      sync.Mutex
	cycles  []coremetrics.CycleReport
	tasks   []coremetrics.TaskRecord
	dropped []coremetrics.DroppedRunRecord
}

func (m *memSink) RecordCycle(r coremetrics.CycleReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, r)
	return nil
}

func (m *memSink) RecordTask(r coremetrics.TaskRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, r)
	return nil
}

func (m *memSink) RecordDroppedRun(r coremetrics.DroppedRunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, r)
	return nil
}

func (m *memSink) counts() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cycles), len(m.tasks), len(m.dropped)
}

func TestRecordTranslatesEvents(t *testing.T) {
	sink := &memSink{}
	now := time.Now()
	p := model.TaskProposal{
		ID:          uuid.New(),
		Kind:        model.TaskShuntingLoad,
		Source:      "S",
		Destination: "D",
		Pickups: []model.Pickup{
			{Cars: []model.Car{{ID: "a", Length: 12}}},
			{Cars: []model.Car{{ID: "b", Length: 14}}},
		},
	}
	for _, ev := range []eventbus.Event{
		events.CycleEvent{Seed: 9, Consumed: 2, Tasks: 1, Err: errors.New("boom")},
		events.TaskEvent{Proposal: p, Task: model.Task{ID: "T1"}},
		events.DroppedRunEvent{Station: "S", Cars: []model.CarID{"x", "y"}, Reason: "no_cargo"},
		events.PhaseEvent{Phase: "batching"},
	} {
		if err := record(sink, ev, now); err != nil {
			t.Fatalf("record %T: %v", ev, err)
		}
	}
	if c, tk, d := sink.counts(); c != 1 || tk != 1 || d != 1 {
		t.Fatalf("unexpected counts %d %d %d", c, tk, d)
	}
	if !sink.cycles[0].Aborted || sink.cycles[0].Error != "boom" {
		t.Fatalf("abort not recorded: %+v", sink.cycles[0])
	}
	task := sink.tasks[0]
	if task.Cars != 2 || task.Length != 26 || task.ProposalID != p.ID.String() || task.Declined {
		t.Fatalf("unexpected task record %+v", task)
	}
	if sink.dropped[0].Cars != 2 || sink.dropped[0].Reason != "no_cargo" {
		t.Fatalf("unexpected drop record %+v", sink.dropped[0])
	}
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &memSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink, nil)

	bus.Publish(events.CycleEvent{Seed: 1})
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c, _, _ := sink.counts(); c == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("cycle event not collected")
}
