package common

import "sort"

// StringSet is a set of strings, used for config lists like redis cluster start nodes
type StringSet map[string]struct{}

// Contains checks if the set contains the string
func (ss StringSet) Contains(elem string) bool {
	_, ok := ss[elem]
	return ok
}

// Add adds the string to the set
func (ss StringSet) Add(elem string) {
	ss[elem] = struct{}{}
}

// Remove removes the string from the set
func (ss StringSet) Remove(elem string) {
	delete(ss, elem)
}

// ToList returns the strings in sorted order
func (ss StringSet) ToList() []string {
	keys := make([]string, 0, len(ss))
	for s := range ss {
		keys = append(keys, s)
	}
	sort.Strings(keys)
	return keys
}
