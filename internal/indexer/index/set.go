package index

import "sort"

// Set is an unordered collection of record IDs.
type Set map[string]struct{}

func (s Set) add(id string) {
	s[id] = struct{}{}
}

// Contains reports whether id is a member of s.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members of s in ascending order.
func (s Set) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
