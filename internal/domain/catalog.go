package domain

import (
	"fmt"
)

// DefaultDescriptors is the display table for the supported metrics.
var DefaultDescriptors = []MetricDescriptor{
	{Key: "Confirmed", MinRange: 1, MaxRange: 100, Format: "0,0", Label: "Number of Confirmed Coronavirus Cases"},
	{Key: "Deaths", MinRange: 1, MaxRange: 10, Format: "0,0", Label: "Number of Confirmed Coronavirus Deaths"},
	{Key: "Fatality_Rate", MinRange: 0.01, MaxRange: 100, Format: "0.00", Label: "Coronavirus Fatality Rate (Deaths/Confirmed)"},
	{Key: "pConfirmed_Change", MinRange: 0.01, MaxRange: 100, Format: "0.00", Label: "Percent Daily Change in Coronavirus Cases"},
	{Key: "nConfirmed_Change", MinRange: 1, MaxRange: 100, Format: "0,0", Label: "Daily Increase in Cases"},
}

// Catalog is a static, read-only metric lookup table.
type Catalog struct {
	descriptors []MetricDescriptor
	byKey       map[string]int
	byLabel     map[string]int
}

// NewCatalog builds a catalog from the given descriptors, preserving order.
// Keys and labels must be unique and non-empty, and MinRange may not exceed
// MaxRange.
func NewCatalog(descs ...MetricDescriptor) (*Catalog, error) {
	c := &Catalog{
		descriptors: make([]MetricDescriptor, 0, len(descs)),
		byKey:       make(map[string]int, len(descs)),
		byLabel:     make(map[string]int, len(descs)),
	}
	for _, d := range descs {
		if d.Key == "" {
			return nil, fmt.Errorf("metric descriptor %q: empty key", d.Label)
		}
		if d.Label == "" {
			return nil, fmt.Errorf("metric descriptor %q: empty label", d.Key)
		}
		if d.MinRange > d.MaxRange {
			return nil, fmt.Errorf("metric descriptor %q: min range %g above max range %g", d.Key, d.MinRange, d.MaxRange)
		}
		if _, dup := c.byKey[d.Key]; dup {
			return nil, fmt.Errorf("metric descriptor %q: duplicate key", d.Key)
		}
		if _, dup := c.byLabel[d.Label]; dup {
			return nil, fmt.Errorf("metric descriptor %q: duplicate label %q", d.Key, d.Label)
		}
		c.byKey[d.Key] = len(c.descriptors)
		c.byLabel[d.Label] = len(c.descriptors)
		c.descriptors = append(c.descriptors, d)
	}
	return c, nil
}

// DefaultCatalog returns a catalog over DefaultDescriptors.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDescriptors...)
	if err != nil {
		panic(err)
	}
	return c
}

// Describe returns the descriptor for a metric key.
func (c *Catalog) Describe(key string) (MetricDescriptor, error) {
	i, ok := c.byKey[key]
	if !ok {
		return MetricDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
	}
	return c.descriptors[i], nil
}

// DescribeByLabel returns the descriptor carrying the given label.
func (c *Catalog) DescribeByLabel(label string) (MetricDescriptor, error) {
	i, ok := c.byLabel[label]
	if !ok {
		return MetricDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	return c.descriptors[i], nil
}

// Descriptors returns a copy of the table in declaration order.
func (c *Catalog) Descriptors() []MetricDescriptor {
	out := make([]MetricDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Labels returns the descriptor labels in declaration order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.descriptors))
	for i, d := range c.descriptors {
		out[i] = d.Label
	}
	return out
}
