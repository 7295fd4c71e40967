package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/nomad3d/model"
)

// ModelSpec is the scene description of an instrument: a tree of
// components, each with its configurations and optional axis.
type ModelSpec struct {
	Name string   `yaml:"name"`
	Root NodeSpec `yaml:"root"`
}

type NodeSpec struct {
	Name           string              `yaml:"name"`
	Mergeable      bool                `yaml:"mergeable"`
	Controller     string              `yaml:"controller"`
	Axis           *AxisSpec           `yaml:"axis"`
	Bounds         *BoundsSpec         `yaml:"bounds"`
	Configurations []ConfigurationSpec `yaml:"configurations"`
	Children       []NodeSpec          `yaml:"children"`
}

type AxisSpec struct {
	Type      string     `yaml:"type"`
	Direction [3]float64 `yaml:"direction"`
	Pivot     [3]float64 `yaml:"pivot"`
	Min       *float64   `yaml:"min"`
	Max       *float64   `yaml:"max"`
	Zero      float64    `yaml:"zero"`
}

type BoundsSpec struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// ConfigurationSpec places a node absolutely. Rotation is in degrees;
// Visible defaults to true.
type ConfigurationSpec struct {
	Name        string     `yaml:"name"`
	Visible     *bool      `yaml:"visible"`
	Translation [3]float64 `yaml:"translation"`
	Rotation    [3]float64 `yaml:"rotation"`
	AxisValue   float64    `yaml:"axis_value"`
}

func LoadModel(filename string) (*ModelSpec, error) {
	spec, err := LoadSpec[ModelSpec](filename)
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

func ParseModel(data []byte) (*ModelSpec, error) {
	var spec ModelSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("config: unmarshal model: %w", err)
	}
	return &spec, nil
}

// Build creates the model tree. Node names must be unique.
func (m *ModelSpec) Build() (*model.Tree, error) {
	tree := model.NewTree()
	if err := m.add(tree, model.NoNode, m.Root); err != nil {
		return nil, fmt.Errorf("config: model %s: %w", m.Name, err)
	}
	return tree, nil
}

func (m *ModelSpec) add(tree *model.Tree, parent model.NodeID, spec NodeSpec) error {
	if spec.Name == "" {
		return fmt.Errorf("unnamed node under %d", parent)
	}
	if _, dup := tree.Find(spec.Name); dup {
		return fmt.Errorf("duplicate node %s", spec.Name)
	}
	n := &model.Node{
		Name:       spec.Name,
		Mergeable:  spec.Mergeable,
		Controller: spec.Controller,
	}
	if spec.Axis != nil {
		kind, err := model.ParseAxisKind(spec.Axis.Type)
		if err != nil {
			return fmt.Errorf("node %s: %w", spec.Name, err)
		}
		n.Axis = model.NewAxis(model.AxisSpec{
			Kind:      kind,
			Direction: mgl64.Vec3(spec.Axis.Direction),
			Pivot:     mgl64.Vec3(spec.Axis.Pivot),
			Min:       spec.Axis.Min,
			Max:       spec.Axis.Max,
			Zero:      spec.Axis.Zero,
		})
	}
	if spec.Bounds != nil {
		n.Bounds = &model.Box{Min: mgl64.Vec3(spec.Bounds.Min), Max: mgl64.Vec3(spec.Bounds.Max)}
	}
	for _, c := range spec.Configurations {
		visible := true
		if c.Visible != nil {
			visible = *c.Visible
		}
		n.Configurations = append(n.Configurations, model.Configuration{
			Name:        c.Name,
			Visible:     visible,
			Translation: mgl64.Vec3(c.Translation),
			Rotation:    eulerDegrees(c.Rotation),
			AxisValue:   c.AxisValue,
		})
	}

	id, err := tree.Add(parent, n)
	if err != nil {
		return err
	}
	for _, child := range spec.Children {
		if err := m.add(tree, id, child); err != nil {
			return err
		}
	}
	return nil
}
