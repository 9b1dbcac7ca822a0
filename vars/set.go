// Package vars parses theme variable files into resolved variable sets.
//
// A theme file is a flat list of SCSS style assignments, optionally preceded
// by a single include of a shared base file:
//
//	@use "../base";
//
//	$foregroundColor: rgba(220, 215, 186, 1);
//	$borderColor: #7e9cd8;
//
// Includes are resolved one level deep only. The base file is parsed first
// and the including file's assignments are overlaid on top of it, so local
// definitions always win. A base file that itself includes another file is
// rejected rather than followed.
package vars

import (
	"slices"

	"golang.org/x/exp/maps"
)

// Set is a resolved mapping of variable names to values. Iteration follows
// the order in which names were first defined; redefining a name keeps its
// position and replaces its value.
type Set struct {
	names  []string
	values map[string]string
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{values: make(map[string]string)}
}

// FromMap builds a set from m with names in sorted order.
func FromMap(m map[string]string) *Set {
	s := NewSet()
	names := maps.Keys(m)
	slices.Sort(names)
	for _, name := range names {
		s.Set(name, m[name])
	}
	return s
}

// Set defines name, replacing any previous value.
func (s *Set) Set(name, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

// Get returns the value of name.
func (s *Set) Get(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of distinct names.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the variable names in definition order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Each calls fn for every variable in definition order.
func (s *Set) Each(fn func(name, value string)) {
	if s == nil {
		return
	}
	for _, name := range s.names {
		fn(name, s.values[name])
	}
}

// Map returns a copy of the set as a plain map.
func (s *Set) Map() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return maps.Clone(s.values)
}

// Merge overlays every variable of other onto s.
func (s *Set) Merge(other *Set) {
	other.Each(s.Set)
}

// Equal reports whether both sets hold the same names and values,
// regardless of order.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, name := range s.Names() {
		v, _ := s.Get(name)
		ov, ok := other.Get(name)
		if !ok || ov != v {
			return false
		}
	}
	return true
}
