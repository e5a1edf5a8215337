package component

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Builder constructs a component model from untyped configuration parameters.
type Builder func(params map[string]interface{}, cache Cache) (Model, error)

var (
	builders   = make(map[string]Builder)
	buildersMu sync.RWMutex
)

// Register makes a component-model type available for configuration-driven
// construction. The built-in types register themselves.
func Register(name string, builder Builder) {
	buildersMu.Lock()
	defer buildersMu.Unlock()
	builders[name] = builder
}

// SupportedTypes returns the registered component-model type names, sorted.
func SupportedTypes() []string {
	buildersMu.RLock()
	defer buildersMu.RUnlock()
	types := make([]string, 0, len(builders))
	for name := range builders {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Build constructs a registered component-model type.
func Build(name string, params map[string]interface{}, cache Cache) (Model, error) {
	buildersMu.RLock()
	builder, ok := builders[name]
	buildersMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown component model type %q, supported: %v", name, SupportedTypes())
	}
	return builder(params, cache)
}

// floatMap coerces a decoded YAML/JSON mapping into map[string]float64.
func floatMap(v interface{}) (map[string]float64, error) {
	switch t := v.(type) {
	case nil:
		return map[string]float64{}, nil
	case map[string]float64:
		return t, nil
	case map[string]interface{}:
		out := make(map[string]float64, len(t))
		for k, raw := range t {
			switch n := raw.(type) {
			case float64:
				out[k] = n
			case int:
				out[k] = float64(n)
			default:
				return nil, errors.Errorf("value for %q is not numeric", k)
			}
		}
		return out, nil
	default:
		return nil, errors.Errorf("expected a mapping of string to number, got %T", v)
	}
}

func init() {
	Register("affinity", func(params map[string]interface{}, cache Cache) (Model, error) {
		measurements, err := floatMap(params["measurements"])
		if err != nil {
			return nil, errors.Wrap(err, "affinity measurements")
		}
		return NewAffinity(measurements, cache), nil
	})
	Register("expression", func(params map[string]interface{}, cache Cache) (Model, error) {
		abundance, err := floatMap(params["abundance"])
		if err != nil {
			return nil, errors.Wrap(err, "expression abundance")
		}
		return NewExpression(abundance, cache), nil
	})
	Register("cleavage", func(params map[string]interface{}, cache Cache) (Model, error) {
		return NewCleavage(cache), nil
	})
}
