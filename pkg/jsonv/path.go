package jsonv

import "strings"

// Path addresses a location inside a document body as a sequence of object
// member names.
type Path []string

// ParsePath splits a slash-delimited keyword into a Path. Empty segments,
// including leading and trailing slashes, are dropped.
func ParsePath(keyword string) Path {
	var p Path
	for _, seg := range strings.Split(keyword, "/") {
		if seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

// IsRoot reports whether p addresses the whole document.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Last returns the final segment. It panics on the root path.
func (p Path) Last() string { return p[len(p)-1] }

// Parent returns p without its final segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

func (p Path) String() string { return strings.Join(p, "/") }
