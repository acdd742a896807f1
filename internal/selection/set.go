package selection

// Domain is the fixed, ordered set of values a facet can take. It is built
// once at startup and never changes.
type Domain struct {
	facet  Facet
	values []string
	index  map[string]int
}

// NewDomain builds a domain keeping the first occurrence of each value in
// the given order.
func NewDomain(facet Facet, values []string) *Domain {
	d := &Domain{facet: facet, index: make(map[string]int, len(values))}
	for _, v := range values {
		if _, seen := d.index[v]; seen {
			continue
		}
		d.index[v] = len(d.values)
		d.values = append(d.values, v)
	}
	return d
}

func (d *Domain) Facet() Facet {
	return d.facet
}

// Values returns a copy of the domain values in order.
func (d *Domain) Values() []string {
	out := make([]string, len(d.values))
	copy(out, d.values)
	return out
}

func (d *Domain) Len() int {
	return len(d.values)
}

func (d *Domain) Contains(value string) bool {
	_, ok := d.index[value]
	return ok
}

// Set is the ordered set of selected values of one facet. Members always
// follow domain order and are a subset of the domain. Both the selector
// path (Replace) and the bar-click path (Toggle) mutate the same Set.
type Set struct {
	domain  *Domain
	members []bool
	size    int
}

// All returns a Set holding every domain value.
func All(d *Domain) Set {
	s := Set{domain: d, members: make([]bool, d.Len())}
	s.selectAll()
	return s
}

func (s *Set) selectAll() {
	for i := range s.members {
		s.members[i] = true
	}
	s.size = len(s.members)
}

// Domain returns the domain the set draws from.
func (s Set) Domain() *Domain {
	return s.domain
}

// Contains reports whether value is selected.
func (s Set) Contains(value string) bool {
	if s.domain == nil {
		return false
	}
	i, ok := s.domain.index[value]
	return ok && s.members[i]
}

// Len returns the number of selected values.
func (s Set) Len() int {
	return s.size
}

// IsAll reports whether every domain value is selected.
func (s Set) IsAll() bool {
	return s.domain != nil && s.size == s.domain.Len()
}

// IsOnly reports whether value is the sole selected value.
func (s Set) IsOnly(value string) bool {
	return s.size == 1 && s.Contains(value)
}

// Values returns the selected values in domain order.
func (s Set) Values() []string {
	out := make([]string, 0, s.size)
	for i, on := range s.members {
		if on {
			out = append(out, s.domain.values[i])
		}
	}
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	members := make([]bool, len(s.members))
	copy(members, s.members)
	return Set{domain: s.domain, members: members, size: s.size}
}

// Equal reports whether both sets select the same values of the same domain.
func (s Set) Equal(o Set) bool {
	if s.domain != o.domain || s.size != o.size {
		return false
	}
	for i := range s.members {
		if s.members[i] != o.members[i] {
			return false
		}
	}
	return true
}

// Replace sets the selection to exactly values (duplicates ignored). It
// fails without changing the set when values is empty or names a value
// outside the domain.
func (s *Set) Replace(values []string) error {
	if len(values) == 0 {
		return ErrEmptySelection
	}
	if err := s.check(values...); err != nil {
		return err
	}

	for i := range s.members {
		s.members[i] = false
	}
	s.size = 0
	for _, v := range values {
		i := s.domain.index[v]
		if !s.members[i] {
			s.members[i] = true
			s.size++
		}
	}
	return nil
}

// Toggle applies a bar click on value: when value is already the only
// selected value the selection resets to the whole domain, otherwise it
// becomes exactly {value}. Clicking never adds to a selection.
func (s *Set) Toggle(value string) error {
	if err := s.check(value); err != nil {
		return err
	}

	if s.IsOnly(value) {
		s.selectAll()
		return nil
	}
	return s.Replace([]string{value})
}

func (s *Set) check(values ...string) error {
	for _, v := range values {
		if s.domain == nil || !s.domain.Contains(v) {
			f := Sites
			if s.domain != nil {
				f = s.domain.facet
			}
			return &UnknownValueError{Facet: f, Value: v}
		}
	}
	return nil
}
