// Package memory provides an in-process implementation of catalog.Lookup
// backed by a static menu.
//
// Names resolve in three steps: an exact case-insensitive hit, the same after
// stripping a plural "s"/"es", and finally a phonetic/fuzzy match over all menu
// names. The catalog is read-only after construction and safe for concurrent
// use.
package memory

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/internal/phonetic"
	"github.com/Ibrahim-Haroon/BeanHub-backend-sub000/pkg/catalog"
)

//go:embed menu.yaml
var defaultMenu []byte

var _ catalog.Lookup = (*Catalog)(nil)

// Menu is the on-disk menu document.
type Menu struct {
	Items []catalog.Item `yaml:"items"`
}

// LoadMenu decodes a YAML menu from r. Unknown fields are rejected.
func LoadMenu(r io.Reader) ([]catalog.Item, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var m Menu
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("memory catalog: menu is empty")
		}
		return nil, fmt.Errorf("memory catalog: decode menu: %w", err)
	}
	return m.Items, nil
}

// LoadMenuFile reads a YAML menu from path.
func LoadMenuFile(path string) ([]catalog.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("memory catalog: %w", err)
	}
	defer f.Close()
	return LoadMenu(f)
}

// DefaultMenu returns the built-in menu.
func DefaultMenu() []catalog.Item {
	items, err := LoadMenu(bytes.NewReader(defaultMenu))
	if err != nil {
		panic("memory catalog: built-in menu: " + err.Error())
	}
	return items
}

// Catalog is a static menu with fuzzy name resolution.
type Catalog struct {
	items  []catalog.Item
	byName map[string]int
	index  *phonetic.Index
}

// Option is a functional option for [New].
type Option func(*options)

type options struct {
	phonetic []phonetic.Option
}

// WithMatchThresholds overrides the phonetic and fuzzy acceptance thresholds
// used for names that do not resolve exactly.
func WithMatchThresholds(phoneticThreshold, fuzzyThreshold float64) Option {
	return func(o *options) {
		o.phonetic = append(o.phonetic,
			phonetic.WithPhoneticThreshold(phoneticThreshold),
			phonetic.WithFuzzyThreshold(fuzzyThreshold),
		)
	}
}

// New builds a [Catalog] over items. Names are normalised to lower case and
// must be unique and non-empty; prices and stock must not be negative.
func New(items []catalog.Item, opts ...Option) (*Catalog, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}

	c := &Catalog{
		items:  make([]catalog.Item, 0, len(items)),
		byName: make(map[string]int, len(items)),
	}
	var errs []error
	names := make([]string, 0, len(items))
	for i, it := range items {
		it.Name = normalize(it.Name)
		switch {
		case it.Name == "":
			errs = append(errs, fmt.Errorf("item %d: name is empty", i))
			continue
		case it.Price < 0:
			errs = append(errs, fmt.Errorf("item %q: negative price %v", it.Name, it.Price))
		case it.Stock < 0:
			errs = append(errs, fmt.Errorf("item %q: negative stock %d", it.Name, it.Stock))
		case it.Calories.Min > it.Calories.Max:
			errs = append(errs, fmt.Errorf("item %q: calories min %d > max %d", it.Name, it.Calories.Min, it.Calories.Max))
		}
		if _, dup := c.byName[it.Name]; dup {
			errs = append(errs, fmt.Errorf("item %q: duplicate name", it.Name))
			continue
		}
		c.byName[it.Name] = len(c.items)
		c.items = append(c.items, it)
		names = append(names, it.Name)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("memory catalog: %w", err)
	}
	c.index = phonetic.NewIndex(names, o.phonetic...)
	return c, nil
}

// Lookup implements catalog.Lookup.
func (c *Catalog) Lookup(ctx context.Context, name string) (catalog.Item, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Item{}, err
	}
	q := normalize(name)
	if i, ok := c.exact(q); ok {
		return c.items[i], nil
	}
	if m, ok := c.index.Match(q); ok {
		return c.items[c.byName[m.Name]], nil
	}
	return catalog.Item{}, fmt.Errorf("memory catalog: %q: %w", name, catalog.ErrNotFound)
}

// Items returns a copy of the menu in load order.
func (c *Catalog) Items() []catalog.Item {
	return append([]catalog.Item(nil), c.items...)
}

// Len returns the number of menu entries.
func (c *Catalog) Len() int { return len(c.items) }

func (c *Catalog) exact(q string) (int, bool) {
	if i, ok := c.byName[q]; ok {
		return i, true
	}
	for _, suffix := range []string{"es", "s"} {
		if base, ok := strings.CutSuffix(q, suffix); ok {
			if i, ok := c.byName[base]; ok {
				return i, true
			}
		}
	}
	return 0, false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
