package catalog

import "sort"

// Selection maps an attribute name to the chosen value name. An empty value
// means the attribute is unset, not that the empty string was chosen.
type Selection map[string]string

// Active returns the attribute names with a non-empty choice, sorted.
func (s Selection) Active() []string {
	names := make([]string, 0, len(s))
	for name, value := range s {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of attributes with a non-empty choice.
func (s Selection) Len() int {
	n := 0
	for _, value := range s {
		if value != "" {
			n++
		}
	}
	return n
}

// IsEmpty reports whether nothing is selected.
func (s Selection) IsEmpty() bool {
	return s.Len() == 0
}

// Clone returns an independent copy of s.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}

// With returns a copy of s with attribute set to value. The receiver is not modified.
func (s Selection) With(attribute, value string) Selection {
	out := s.Clone()
	out[attribute] = value
	return out
}

// Without returns a copy of s with attribute removed.
func (s Selection) Without(attribute string) Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		if k == attribute {
			continue
		}
		out[k] = v
	}
	return out
}
