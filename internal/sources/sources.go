// Package sources bundles, per external source, the anchor, field rules and
// section headings used to parse its listing pages.
package sources

import (
	"errors"
	"fmt"
	"sort"

	"schooldir/internal/classify"
	"schooldir/internal/extract"
	"schooldir/internal/school"
	"schooldir/internal/segment"
)

var ErrUnknownProfile = errors.New("unknown source profile")

// Unit is one page fetched and committed as a whole.
type Unit struct {
	District string       `json:"district" yaml:"district"`
	URL      string       `json:"url" yaml:"url"`
	Level    school.Level `json:"level,omitempty" yaml:"level,omitempty"`
}

type Profile struct {
	ID string
	// Source is the provenance tag written to the store.
	Source     string
	Trust      school.Trust
	Segmenter  segment.Segmenter
	Fields     extract.FieldSet
	Classifier *classify.Classifier
	// Expected fields are reported as drift when no block on a page yields
	// them.
	Expected []string
	units    func() []Unit
}

// Units returns the pages a full run of this source covers.
func (p *Profile) Units() []Unit {
	if p.units == nil {
		return nil
	}
	return p.units()
}

var registry = map[string]func() *Profile{
	"edb":       EDB,
	"directory": Directory,
}

// Lookup returns a fresh profile by id.
func Lookup(id string) (*Profile, error) {
	build, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}
	return build(), nil
}

// IDs lists the registered profiles.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
