package workspace

import (
	"path"
	"path/filepath"
	"strings"
)

// Excluder decides whether a tree-relative path is reserved and must be skipped.
// An entry excludes the path equal to it and everything below it.
type Excluder struct {
	prefixes []string
}

// NewExcluder builds an Excluder from configured items. Items are normalized to
// slash-separated clean relative paths; blank items and "." are ignored.
func NewExcluder(items ...string) *Excluder {
	e := &Excluder{prefixes: make([]string, 0, len(items))}

	return e.With(items...)
}

// With adds more items and returns the receiver.
func (e *Excluder) With(items ...string) *Excluder {
	for _, item := range items {
		if p := normalize(item); p != "" && !e.contains(p) {
			e.prefixes = append(e.prefixes, p)
		}
	}

	return e
}

// Items returns the normalized entries.
func (e *Excluder) Items() []string {
	return append([]string(nil), e.prefixes...)
}

// Match reports whether rel (relative to the tree root) is excluded.
// A nil Excluder matches nothing.
func (e *Excluder) Match(rel string) bool {
	if e == nil {
		return false
	}

	rel = normalize(rel)
	if rel == "" {
		return false
	}

	for _, p := range e.prefixes {
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}

	return false
}

func (e *Excluder) contains(p string) bool {
	for _, existing := range e.prefixes {
		if existing == p {
			return true
		}
	}

	return false
}

func normalize(p string) string {
	p = strings.TrimSpace(filepath.ToSlash(p))
	if p == "" {
		return ""
	}

	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")

	if p == "." {
		return ""
	}

	return p
}
