package reassign

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/railjobs/core/events"
	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
)

// finalize hands every proposal to the task builder exactly once. Declined
// proposals leave their cars idle; any other builder failure aborts the
// cycle, keeping the tasks built so far.
func (e *Engine) finalize(ctx context.Context, st cycleState) (cycleState, error) {
	for _, p := range st.proposals {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		cars := p.Cars()
		if e.deps.Owner != nil {
			if err := e.deps.Owner.ConvertToManaged(cars); err != nil {
				return st, fmt.Errorf("convert ownership for proposal %s: %w", p.ID, err)
			}
		}
		task, err := e.deps.Builder.Build(ctx, p)
		if errors.Is(err, host.ErrTaskDeclined) {
			e.logger.Warnf("%s task %s declined: %v", p.Kind, p.ID, err)
			tasksTotal.WithLabelValues(p.Kind.String(), "declined").Inc()
			e.publish(events.TaskEvent{Proposal: p, Err: err})
			st.dropped = append(st.dropped, DroppedRun{Station: p.Source, Cars: cars, Err: err})
			continue
		}
		if err != nil {
			return st, fmt.Errorf("build %s task for proposal %s: %w", p.Kind, p.ID, err)
		}
		ids := model.CarIDs(cars)
		e.deps.Idle.Remove(ids...)
		st.tasks = append(st.tasks, task)
		st.consumed = append(st.consumed, cars...)
		tasksTotal.WithLabelValues(p.Kind.String(), "built").Inc()
		e.publish(events.TaskEvent{Proposal: p, Task: task})
		e.logger.Infof("generated %s task %s with %d cars from %s to %s", p.Kind, task.ID, len(cars), p.Source, p.Destination)
	}
	return st, nil
}
