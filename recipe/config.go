package recipe

import (
	"maps"
	"slices"
	"strings"
)

// Configuration is one resolved set of option values. It is immutable: the
// constructor copies its input and accessors never expose the backing map.
type Configuration struct {
	values map[string]string
}

// NewConfiguration returns a Configuration holding a copy of values.
func NewConfiguration(values map[string]string) Configuration {
	return Configuration{values: maps.Clone(values)}
}

// Get returns the value of option name.
func (c Configuration) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Has reports whether option name is part of c.
func (c Configuration) Has(name string) bool {
	_, ok := c.values[name]
	return ok
}

// Bool reports whether option name is present and set to "true".
func (c Configuration) Bool(name string) bool {
	return c.values[name] == True
}

// Len returns the number of options in c.
func (c Configuration) Len() int { return len(c.values) }

// Keys returns the option names in c, sorted.
func (c Configuration) Keys() []string {
	return slices.Sorted(maps.Keys(c.values))
}

// Values returns a copy of the option values.
func (c Configuration) Values() map[string]string {
	return maps.Clone(c.values)
}

// String returns "k=v" pairs joined by "," in key order.
func (c Configuration) String() string {
	keys := c.Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+c.values[k])
	}
	return strings.Join(parts, ",")
}
