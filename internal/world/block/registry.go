package block

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Box осевой параллелепипед геометрии блока в долях вокселя
type Box struct {
	Min [3]float32 `yaml:"min" json:"min"`
	Max [3]float32 `yaml:"max" json:"max"`
}

// Geometry описание формы блока
type Geometry struct {
	Name  string `yaml:"name" json:"name"`
	Boxes []Box  `yaml:"boxes,omitempty" json:"boxes,omitempty"`
}

// Descriptor описание типа блока
type Descriptor struct {
	Identifier string `yaml:"identifier" json:"identifier"`
	Geometry   string `yaml:"geometry,omitempty" json:"geometry,omitempty"`
	Visible    bool   `yaml:"visible" json:"visible"`
	Solid      bool   `yaml:"solid" json:"solid"`
}

// Registry реестр описаний блоков и геометрий
type Registry struct {
	Blocks     map[string]Descriptor `yaml:"blocks" json:"blocks"`
	Geometries map[string]Geometry   `yaml:"geometries" json:"geometries"`
}

// NewRegistry создаёт реестр со встроенными блоками
func NewRegistry() *Registry {
	r := &Registry{
		Blocks:     make(map[string]Descriptor),
		Geometries: make(map[string]Geometry),
	}
	registerBuiltins(r)
	return r
}

// Register добавляет или заменяет описание блока
func (r *Registry) Register(desc Descriptor) {
	if r.Blocks == nil {
		r.Blocks = make(map[string]Descriptor)
	}
	r.Blocks[desc.Identifier] = desc
}

// RegisterGeometry добавляет или заменяет геометрию
func (r *Registry) RegisterGeometry(g Geometry) {
	if r.Geometries == nil {
		r.Geometries = make(map[string]Geometry)
	}
	r.Geometries[g.Name] = g
}

// Lookup возвращает описание блока по идентификатору
func (r *Registry) Lookup(identifier string) (Descriptor, bool) {
	desc, ok := r.Blocks[identifier]
	return desc, ok
}

// Clone создаёт глубокую копию реестра
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	out := &Registry{
		Blocks:     make(map[string]Descriptor, len(r.Blocks)),
		Geometries: make(map[string]Geometry, len(r.Geometries)),
	}
	for k, v := range r.Blocks {
		out.Blocks[k] = v
	}
	for k, g := range r.Geometries {
		g.Boxes = append([]Box(nil), g.Boxes...)
		out.Geometries[k] = g
	}
	return out
}

// LoadRegistryFile читает YAML-файл описаний и накладывает его на встроенные блоки
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения реестра блоков %s: %w", path, err)
	}

	var file Registry
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка разбора реестра блоков %s: %w", path, err)
	}

	reg := NewRegistry()
	for id, desc := range file.Blocks {
		if desc.Identifier == "" {
			desc.Identifier = id
		}
		reg.Register(desc)
	}
	for name, g := range file.Geometries {
		if g.Name == "" {
			g.Name = name
		}
		reg.RegisterGeometry(g)
	}
	return reg, nil
}
