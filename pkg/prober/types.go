package prober

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Link relations that point at a type's collection endpoint, in lookup order.
const (
	RelItems       = "wp:items"
	RelLegacyItems = "https://api.w.org/items"
)

// TypeMap maps a document type to its discovered collection URL. A TypeMap
// must only live for the duration of one operation.
type TypeMap map[string]string

// TypeDescriptor is one entry of the {namespace}/types registry.
type TypeDescriptor struct {
	Name     string            `mapstructure:"name"`
	Slug     string            `mapstructure:"slug"`
	RestBase string            `mapstructure:"rest_base"`
	Links    map[string][]Link `mapstructure:"_links"`
}

// Link is a HAL-style link object.
type Link struct {
	Href string `mapstructure:"href"`
}

// ItemsLink returns the collection link of the descriptor, preferring
// RelItems over RelLegacyItems, or "" when neither is present.
func (d *TypeDescriptor) ItemsLink() string {
	for _, rel := range []string{RelItems, RelLegacyItems} {
		for _, l := range d.Links[rel] {
			if l.Href != "" {
				return l.Href
			}
		}
	}
	return ""
}

// Route is one entry of the root payload's routes table.
type Route struct {
	Namespace string   `mapstructure:"namespace"`
	Methods   []string `mapstructure:"methods"`
}

// Supports reports whether the route declares method.
func (r Route) Supports(method string) bool {
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// decodeLoose decodes a generic JSON value into out, ignoring fields it does
// not know about.
func decodeLoose(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func decodeDescriptor(raw any) (*TypeDescriptor, error) {
	var d TypeDescriptor
	if err := decodeLoose(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func decodeRoutes(raw any) (map[string]Route, error) {
	routes := map[string]Route{}
	if err := decodeLoose(raw, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}
