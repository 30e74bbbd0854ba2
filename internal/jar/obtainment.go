package jar

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed obtainment.yaml
var defaultObtainment []byte

// Obtainment describes how the game is progressed: the ordered areas with
// the items each one requires, where non-overworld sources live, and drops
// too rare to count on.
type Obtainment struct {
	Start           string              `yaml:"start"`
	Areas           []AreaSpec          `yaml:"areas"`
	SpecialSources  map[string][]string `yaml:"special_sources"`
	UnreliableDrops []UnreliableDrop    `yaml:"unreliable_drops"`
}

type AreaSpec struct {
	Name     string   `yaml:"name"`
	Criteria []string `yaml:"criteria"`
}

// UnreliableDrop removes Item from the drop-set of Source.
type UnreliableDrop struct {
	Source string `yaml:"source"`
	Item   string `yaml:"item"`
}

// DefaultObtainment returns the embedded vanilla progression data.
func DefaultObtainment() (*Obtainment, error) {
	return parseObtainment(defaultObtainment, "embedded obtainment data")
}

// LoadObtainment reads obtainment data from a YAML file.
func LoadObtainment(path string) (*Obtainment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read obtainment data: %w", err)
	}
	return parseObtainment(data, path)
}

func parseObtainment(data []byte, name string) (*Obtainment, error) {
	var o Obtainment
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if len(o.Areas) == 0 {
		return nil, fmt.Errorf("parse %s: no areas", name)
	}
	return &o, nil
}

// areaOf maps every listed source to its area.
func (o *Obtainment) areaOf() map[string]string {
	out := make(map[string]string)
	for area, sources := range o.SpecialSources {
		for _, s := range sources {
			out[s] = area
		}
	}
	return out
}
