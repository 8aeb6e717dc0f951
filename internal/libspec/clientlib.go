package libspec

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type clientLibFile struct {
	Info      Info `yaml:"info"`
	Functions []struct {
		ID          string    `yaml:"id"`
		Title       string    `yaml:"title"`
		Ref         string    `yaml:"$ref"`
		Description string    `yaml:"description"`
		Notes       string    `yaml:"notes"`
		Params      []Param   `yaml:"params"`
		Examples    []Example `yaml:"examples"`
	} `yaml:"functions"`
}

// ParseClientLib parses a client library YAML spec.
func ParseClientLib(data []byte) (*Spec, error) {
	var f clientLibFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "client library yaml")
	}
	entries := make([]Entry, 0, len(f.Functions))
	for i, fn := range f.Functions {
		if fn.ID == "" {
			return nil, errors.Errorf("function %d has no id", i)
		}
		entries = append(entries, Entry{
			ID:          fn.ID,
			Title:       fn.Title,
			Description: fn.Description,
			Notes:       fn.Notes,
			Ref:         fn.Ref,
			Params:      fn.Params,
			Examples:    fn.Examples,
		})
	}
	return newSpec(KindClientLib, f.Info, entries), nil
}
