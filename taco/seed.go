package taco

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Tacos []Taco `yaml:"tacos"`
}

// LoadSeed reads designs from a yaml file of the form
//
//	tacos:
//	  - name: Carnivore
//	    ingredients: [FLTO, GRBF, CARN]
func LoadSeed(path string) ([]Taco, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading seed %s", path)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) ([]Taco, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, errors.Wrap(err, "parsing seed")
	}
	for i, t := range seed.Tacos {
		if t.Name == "" {
			return nil, errors.Errorf("seed taco %d has no name", i)
		}
	}
	return seed.Tacos, nil
}
