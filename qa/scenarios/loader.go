package scenarios

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/railjobs/core/model"
	"github.com/kilianp07/railjobs/simulator"
)

// CycleDef describes one cycle of a scenario.
type CycleDef struct {
	Seed              int64         `yaml:"seed"`
	SkipDistanceCheck bool          `yaml:"skip_distance_check,omitempty"`
	Ignore            []model.CarID `yaml:"ignore,omitempty"`
	// Observer moves the observer before the cycle runs.
	Observer *simulator.Vec `yaml:"observer,omitempty"`
	// Decline makes the task builder refuse proposals of these kinds.
	Decline []model.TaskKind `yaml:"decline,omitempty"`
}

// Expected holds the checks made after the last cycle. Nil fields are not
// checked. Kinds and Dropped are minimum counts since chop sizes depend on
// the seed.
type Expected struct {
	Tasks   *int           `yaml:"tasks,omitempty"`
	Kinds   map[string]int `yaml:"kinds,omitempty"`
	Deleted []model.CarID  `yaml:"deleted,omitempty"`
	Idle    []model.CarID  `yaml:"idle,omitempty"`
	Dropped map[string]int `yaml:"dropped,omitempty"`
	Aborted bool           `yaml:"aborted,omitempty"`
}

type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// World is a world file path, relative to the scenario file.
	World    string     `yaml:"world"`
	Cycles   []CycleDef `yaml:"cycles"`
	Expected Expected   `yaml:"expected"`

	dir string
}

// WorldPath resolves the world file against the scenario location.
func (s *Scenario) WorldPath() string {
	if filepath.IsAbs(s.World) {
		return s.World
	}
	return filepath.Join(s.dir, s.World)
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = filepath.Base(path)
	}
	if sc.World == "" {
		return nil, fmt.Errorf("scenario %s: world is required", path)
	}
	if len(sc.Cycles) == 0 {
		sc.Cycles = []CycleDef{{Seed: 1}}
	}
	sc.dir = filepath.Dir(path)
	return &sc, nil
}
