package groups

// Set is an unordered collection of group names, used for admission and
// admin checks against a user's cluster group membership.
type Set map[string]struct{}

// NewSet builds a Set from a list of group names, ignoring empty names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		s[name] = struct{}{}
	}
	return s
}

// Empty returns true if the set holds no groups.
func (s Set) Empty() bool {
	return len(s) == 0
}

// Intersects returns true if any of the given group names is in the set.
func (s Set) Intersects(names []string) bool {
	for _, name := range names {
		if _, ok := s[name]; ok {
			return true
		}
	}
	return false
}

// Matching returns the given group names that are in the set, preserving
// their order.
func (s Set) Matching(names []string) []string {
	matching := []string{}
	for _, name := range names {
		if _, ok := s[name]; ok {
			matching = append(matching, name)
		}
	}
	return matching
}
