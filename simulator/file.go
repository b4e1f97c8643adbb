package simulator

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/railjobs/core/model"
)

// File is the YAML layout of a world.
type File struct {
	CarTypes map[model.CarTypeID]CarTypeFile `yaml:"car_types"`
	Observer *ObserverFile                   `yaml:"observer,omitempty"`
	Stations []StationFile                   `yaml:"stations"`
	Consists []ConsistFile                   `yaml:"consists"`
	// Idle lists the cars on the idle list. Every car without a task is idle
	// when omitted.
	Idle []model.CarID `yaml:"idle"`
}

type CarTypeFile struct {
	Cargo   []model.CargoType `yaml:"cargo,omitempty"`
	Special bool              `yaml:"special,omitempty"`
}

type ObserverFile struct {
	Position       Vec  `yaml:"position"`
	FastTravelling bool `yaml:"fast_travelling,omitempty"`
}

type StationFile struct {
	ID       model.StationID `yaml:"id"`
	Name     string          `yaml:"name,omitempty"`
	Position Vec             `yaml:"position"`
	Rules    model.Ruleset   `yaml:"rules"`
	Tracks   []TrackFile     `yaml:"tracks"`
	Outgoing []GroupFile     `yaml:"outgoing,omitempty"`
	Incoming []GroupFile     `yaml:"incoming,omitempty"`
}

type TrackFile struct {
	Name   string  `yaml:"name"`
	Kind   string  `yaml:"kind"`
	Length float64 `yaml:"length"`
	// Free defaults to Length.
	Free   *float64 `yaml:"free,omitempty"`
	Anchor Vec      `yaml:"anchor"`
}

// GroupFile is a cargo group. Relations are destinations for outgoing
// groups and sources for incoming ones.
type GroupFile struct {
	ID        string            `yaml:"id"`
	Cargo     []model.CargoType `yaml:"cargo"`
	Relations []RelationFile    `yaml:"relations"`
	Warehouse []string          `yaml:"warehouse"`
}

type RelationFile struct {
	Station        model.StationID `yaml:"station"`
	MaxTrainLength float64         `yaml:"max_train_length"`
}

type ConsistFile struct {
	ID model.ConsistID `yaml:"id"`
	// Position of the first car. Following cars are laid out along X.
	Position Vec         `yaml:"position"`
	Cars     []model.Car `yaml:"cars"`
}

// Vec is an [x, y, z] triple.
type Vec [3]float64

// R3 converts v to a gonum vector.
func (v Vec) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func fromR3(v r3.Vec) Vec { return Vec{v.X, v.Y, v.Z} }

// Decode reads a world file.
func Decode(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode world: %w", err)
	}
	return f, nil
}

// ReadFile decodes the world at path.
func ReadFile(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Decode(bytes.NewReader(b))
}

// WriteFile encodes f to path.
func WriteFile(path string, f File) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode world: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
