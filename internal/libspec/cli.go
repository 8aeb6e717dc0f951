package libspec

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type cliFile struct {
	Info     Info `yaml:"info"`
	Commands []struct {
		ID          string    `yaml:"id"`
		Title       string    `yaml:"title"`
		Summary     string    `yaml:"summary"`
		Description string    `yaml:"description"`
		Usage       string    `yaml:"usage"`
		Tags        []string  `yaml:"tags"`
		Flags       []Flag    `yaml:"flags"`
		Examples    []Example `yaml:"examples"`
	} `yaml:"commands"`
}

// ParseCLI parses a CLI YAML spec.
func ParseCLI(data []byte) (*Spec, error) {
	var f cliFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "cli yaml")
	}
	entries := make([]Entry, 0, len(f.Commands))
	for i, c := range f.Commands {
		if c.ID == "" {
			return nil, errors.Errorf("command %d has no id", i)
		}
		description := c.Description
		if description == "" {
			description = c.Summary
		}
		title := c.Title
		if title == "" {
			title = c.ID
		}
		entries = append(entries, Entry{
			ID:          c.ID,
			Title:       title,
			Description: description,
			Usage:       c.Usage,
			Tags:        c.Tags,
			Flags:       c.Flags,
			Examples:    c.Examples,
		})
	}
	return newSpec(KindCLI, f.Info, entries), nil
}
