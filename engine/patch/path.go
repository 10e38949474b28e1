package patch

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	segmentPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)((?:\[[^\[\]]*\])*)$`)
	indexPattern   = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// Segment is one step of a path: a field name and the array indices applied to it
type Segment struct {
	Field   string
	Indices []int
}

// IsArray returns if the segment indexes into an array
func (s Segment) IsArray() bool {
	return len(s.Indices) > 0
}

// IsNestedArray returns if the segment indexes into a multi-dimensional array
func (s Segment) IsNestedArray() bool {
	return len(s.Indices) > 1
}

func (s Segment) String() string {
	var sb strings.Builder
	sb.WriteString(s.Field)
	for _, i := range s.Indices {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte(']')
	}
	return sb.String()
}

// Path is a parsed path expression like `Behavior.Stages[0][2].Value`
type Path []Segment

// ParsePath parses a dotted path expression
//
// Bracket content that is not a non-negative integer is dropped. Every segment
// must start with an identifier and have balanced brackets, otherwise the result
// is an empty path: `Tags[0` is rejected rather than read as `Tags`, which would
// turn an indexed Remove into a remove by value.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		m := segmentPattern.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil
		}
		seg := Segment{Field: m[1]}
		for _, im := range indexPattern.FindAllStringSubmatch(m[2], -1) {
			index, err := strconv.Atoi(strings.TrimSpace(im[1]))
			if err != nil || index < 0 {
				continue
			}
			seg.Indices = append(seg.Indices, index)
		}
		path = append(path, seg)
	}
	return path
}

// Depth returns the number of segments
func (p Path) Depth() int {
	return len(p)
}

// Last returns the final segment, p must not be empty
func (p Path) Last() Segment {
	return p[len(p)-1]
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, seg := range p {
		parts[i] = seg.String()
	}
	return strings.Join(parts, ".")
}
