// Package selection models the three dashboard facets and the set of
// category values currently selected on each of them.
package selection

import (
	"errors"
	"fmt"
)

// Facet is one of the categorical filter dimensions.
type Facet int

const (
	Sites Facet = iota
	OSTypes
	Browsers
)

var facetNames = [...]string{
	Sites:    "sites",
	OSTypes:  "os_types",
	Browsers: "browsers",
}

func (f Facet) String() string {
	if f < Sites || f > Browsers {
		return fmt.Sprintf("facet(%d)", int(f))
	}
	return facetNames[f]
}

// Valid reports whether f is one of the known facets.
func (f Facet) Valid() bool {
	return f >= Sites && f <= Browsers
}

// Facets returns every facet in declaration order.
func Facets() []Facet {
	return []Facet{Sites, OSTypes, Browsers}
}

// ParseFacet maps a facet name ("sites", "os_types", "browsers") to a Facet.
func ParseFacet(name string) (Facet, error) {
	for _, f := range Facets() {
		if facetNames[f] == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFacet, name)
}

func (f Facet) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFacet, int(f))
	}
	return []byte(f.String()), nil
}

func (f *Facet) UnmarshalText(text []byte) error {
	parsed, err := ParseFacet(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

var (
	// ErrEmptySelection rejects a change that would leave a facet with nothing selected.
	ErrEmptySelection = errors.New("selection must not be empty")
	// ErrUnknownCategoryValue is matched by every UnknownValueError.
	ErrUnknownCategoryValue = errors.New("unknown category value")
	// ErrUnknownFacet is returned for facet names outside Facets.
	ErrUnknownFacet = errors.New("unknown facet")
)

// UnknownValueError reports a value outside a facet's domain.
type UnknownValueError struct {
	Facet Facet
	Value string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.Facet, ErrUnknownCategoryValue, e.Value)
}

func (e *UnknownValueError) Unwrap() error {
	return ErrUnknownCategoryValue
}
