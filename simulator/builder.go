package simulator

import (
	"context"
	"fmt"

	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/internal/eventbus"
)

// BuiltTask is a task created by Builder.
type BuiltTask struct {
	Task     model.Task         `json:"task"`
	Proposal model.TaskProposal `json:"proposal"`
}

// Builder turns proposals into tasks inside a World. Cars of a built task
// are marked as having a task and the destination track loses the train
// length of free space.
type Builder struct {
	w          *World
	separation float64
	built      *eventbus.TypedBus[BuiltTask]
	// Decline, when set, refuses matching proposals with host.ErrTaskDeclined.
	Decline func(model.TaskProposal) bool
}

// NewBuilder returns a builder for w.
func NewBuilder(w *World, separation float64) *Builder {
	return &Builder{w: w, separation: separation, built: eventbus.NewTyped[BuiltTask](eventbus.WithName("built_tasks"), eventbus.WithBuffer(64))}
}

// Subscribe returns a channel receiving every task built from now on.
// Slow subscribers miss tasks.
func (b *Builder) Subscribe() <-chan BuiltTask { return b.built.Subscribe() }

// Unsubscribe closes a channel returned by Subscribe.
func (b *Builder) Unsubscribe(ch <-chan BuiltTask) { b.built.Unsubscribe(ch) }

func (b *Builder) Build(ctx context.Context, p model.TaskProposal) (model.Task, error) {
	if err := ctx.Err(); err != nil {
		return model.Task{}, err
	}
	if b.Decline != nil && b.Decline(p) {
		return model.Task{}, fmt.Errorf("%w: proposal %s refused", host.ErrTaskDeclined, p.ID)
	}
	cars := p.Cars()
	w := b.w
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range cars {
		cur, ok := w.cars[c.ID]
		if !ok {
			return model.Task{}, fmt.Errorf("%w: car %s no longer exists", host.ErrTaskDeclined, c.ID)
		}
		if cur.HasTask {
			return model.Task{}, fmt.Errorf("%w: car %s already has a task", host.ErrTaskDeclined, c.ID)
		}
	}
	for _, c := range cars {
		cur := w.cars[c.ID]
		cur.HasTask = true
		w.cars[c.ID] = cur
	}
	w.free[p.DestinationTrack] -= model.TrainLength(cars, b.separation)
	task := model.Task{ID: fmt.Sprintf("task-%04d", len(w.tasks)+1), ProposalID: p.ID, Kind: p.Kind}
	bt := BuiltTask{Task: task, Proposal: p}
	w.tasks = append(w.tasks, bt)
	b.built.Publish(bt)
	return task, nil
}

// Tasks returns every task built so far.
func (w *World) Tasks() []BuiltTask {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]BuiltTask(nil), w.tasks...)
}
