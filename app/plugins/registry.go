package plugins

import (
	"fmt"
	"sort"

	"github.com/kilianp07/railjobs/config"
	"github.com/kilianp07/railjobs/core/host"
	"github.com/kilianp07/railjobs/simulator"
)

// BuilderFactory creates the task builder handed to the engine. release
// frees its resources and may be nil.
type BuilderFactory func(cfg *config.Config, w *simulator.World) (b host.TaskBuilder, release func(), err error)

// SpecialFactory creates the optional special-car strategy. A nil strategy
// disables the extension.
type SpecialFactory func(cfg *config.Config, w *simulator.World) host.SpecialCarStrategy

var (
	Builders = map[string]BuilderFactory{}
	Specials = map[string]SpecialFactory{}
)

func RegisterBuilder(name string, f BuilderFactory) { Builders[name] = f }
func RegisterSpecial(name string, f SpecialFactory) { Specials[name] = f }

// Builder looks up a registered builder factory.
func Builder(name string) (BuilderFactory, error) {
	f, ok := Builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown task builder %q (known: %v)", name, keys(Builders))
	}
	return f, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
