// Package config loads YAML experiment configurations and builds the terms
// and decoy strategies they describe.
package config

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ignatovmg/mhcflurry"
	"github.com/ignatovmg/mhcflurry/component"
	"github.com/ignatovmg/mhcflurry/decoys"
)

// ComponentConfig describes one named component-model instance.
type ComponentConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

// TermConfig associates component models (by name) with feature expressions.
type TermConfig struct {
	Models      []string `yaml:"models"`
	Expressions []string `yaml:"expressions"`
}

// Config is a complete experiment description.
type Config struct {
	Seed          int64                 `yaml:"seed"`
	DecoysPerHit  int                   `yaml:"decoys_per_hit"`
	DecoyUniverse []string              `yaml:"decoy_universe"`
	Components    []ComponentConfig     `yaml:"components"`
	Terms         map[string]TermConfig `yaml:"terms"`
	Formulas      []string              `yaml:"formulas"`
}

// Load decodes and validates a YAML experiment configuration.
func Load(r io.Reader) (*Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks internal references: every term model names a defined
// component and every component type is registered.
func (c *Config) Validate() error {
	if c.DecoysPerHit < 1 {
		return errors.New("decoys_per_hit must be at least 1")
	}
	if len(c.DecoyUniverse) == 0 {
		return errors.New("decoy_universe must not be empty")
	}
	if len(c.Formulas) == 0 {
		return errors.New("at least one formula is required")
	}

	defined := make(map[string]bool, len(c.Components))
	registered := make(map[string]bool)
	for _, t := range component.SupportedTypes() {
		registered[t] = true
	}
	for _, cc := range c.Components {
		if cc.Name == "" {
			return errors.New("component with empty name")
		}
		if defined[cc.Name] {
			return errors.Errorf("component %q defined twice", cc.Name)
		}
		if !registered[cc.Type] {
			return errors.Errorf("component %q has unknown type %q, supported: %v", cc.Name, cc.Type, component.SupportedTypes())
		}
		defined[cc.Name] = true
	}

	for name, term := range c.Terms {
		if len(term.Expressions) == 0 {
			return errors.Errorf("term %q has no expressions", name)
		}
		for _, model := range term.Models {
			if !defined[model] {
				return errors.Errorf("term %q references undefined component %q", name, model)
			}
		}
	}
	return nil
}

// BuildTerms constructs the configured component models, one shared instance
// per name, and assembles them into terms.
func (c *Config) BuildTerms(cache component.Cache) (map[string]mhcflurry.Term, error) {
	instances := make(map[string]component.Model, len(c.Components))
	for _, cc := range c.Components {
		model, err := component.Build(cc.Type, cc.Params, cache)
		if err != nil {
			return nil, errors.Wrapf(err, "building component %q", cc.Name)
		}
		instances[cc.Name] = model
	}

	terms := make(map[string]mhcflurry.Term, len(c.Terms))
	for name, tc := range c.Terms {
		term := mhcflurry.Term{Expressions: tc.Expressions}
		for _, model := range tc.Models {
			term.Models = append(term.Models, instances[model])
		}
		terms[name] = term
	}
	return terms, nil
}

// Strategy returns a factory producing one decoy strategy per presentation
// model, each seeded from the configured seed.
func (c *Config) Strategy() func() decoys.Strategy {
	return func() decoys.Strategy {
		return decoys.NewUniformRandom(c.DecoyUniverse, c.DecoysPerHit, c.Seed)
	}
}
