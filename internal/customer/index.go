// Package customer resolves free-text customer names from reports to customer directory codes.
package customer

import (
	"regexp"
	"strings"

	"github.com/schollz/closestmatch"

	"posrecon/internal/textnorm"
)

// qualifierRe splits "name: qualifier" or "name - qualifier" at the last separator.
var qualifierRe = regexp.MustCompile(`^(.+)(?::|\s-|-\s)\s*\S.*$`)

// Entry one directory row.
type Entry struct {
	Name    string   `json:"name"`
	Code    string   `json:"code"`
	Aliases []string `json:"aliases,omitempty"`
}

// Options index settings.
type Options struct {
	ExcludedCustomers []string
	UnknownCode       string
}

// Index name and alias lookup tables. Read-only after NewIndex.
type Index struct {
	exact       map[string]string
	alias       map[string]string
	names       map[string]string // normalized key -> display name
	excluded    map[string]bool
	unknownCode string
	matcher     *closestmatch.ClosestMatch
}

// NewIndex builds the lookup tables; later entries win on duplicate keys.
func NewIndex(entries []Entry, opts Options) *Index {
	idx := &Index{
		exact:       make(map[string]string, len(entries)),
		alias:       make(map[string]string),
		names:       make(map[string]string, len(entries)),
		excluded:    make(map[string]bool, len(opts.ExcludedCustomers)),
		unknownCode: opts.UnknownCode,
	}
	for _, name := range opts.ExcludedCustomers {
		if k := textnorm.NormalizeKey(name); k != "" {
			idx.excluded[k] = true
		}
	}

	for _, e := range entries {
		code := strings.TrimSpace(e.Code)
		if code == "" {
			continue
		}
		if key := textnorm.NormalizeKey(e.Name); key != "" {
			idx.exact[key] = code
			idx.names[key] = e.Name
		}
		for _, a := range e.Aliases {
			if key := textnorm.NormalizeKey(a); key != "" {
				idx.alias[key] = code
				if _, ok := idx.names[key]; !ok {
					idx.names[key] = e.Name
				}
			}
		}
	}

	if len(idx.names) > 0 {
		keys := make([]string, 0, len(idx.names))
		for k := range idx.names {
			keys = append(keys, k)
		}
		idx.matcher = closestmatch.New(keys, []int{2, 3})
	}
	return idx
}

// Len number of exact-name keys.
func (idx *Index) Len() int { return len(idx.exact) }

// UnknownCode sentinel returned for unresolved names.
func (idx *Index) UnknownCode() string { return idx.unknownCode }

// Resolve returns the directory code for name, trying exact names, then aliases, then the same
// after dropping a trailing ": qualifier" / "- qualifier". Unresolved or excluded names get the unknown code.
func (idx *Index) Resolve(name string) string {
	key := textnorm.NormalizeKey(name)
	if key == "" || idx.excluded[key] {
		return idx.unknownCode
	}
	if code, ok := idx.lookup(key); ok {
		return code
	}

	if m := qualifierRe.FindStringSubmatch(strings.TrimSpace(name)); m != nil {
		prefix := textnorm.NormalizeKey(m[1])
		if prefix != "" && !idx.excluded[prefix] {
			if code, ok := idx.lookup(prefix); ok {
				return code
			}
		}
	}
	return idx.unknownCode
}

// IsKnown reports whether code is a real directory code rather than the unknown sentinel.
func (idx *Index) IsKnown(code string) bool {
	return strings.TrimSpace(code) != "" && code != idx.unknownCode
}

func (idx *Index) lookup(key string) (string, bool) {
	if code, ok := idx.exact[key]; ok {
		return code, true
	}
	if code, ok := idx.alias[key]; ok {
		return code, true
	}
	return "", false
}

// Suggest returns the closest directory name for an unresolved name. It is a hint for operators only
// and never feeds back into Resolve.
func (idx *Index) Suggest(name string) (suggestion string, ok bool) {
	key := textnorm.NormalizeKey(name)
	if idx.matcher == nil || key == "" {
		return "", false
	}
	best := idx.matcher.Closest(key)
	if best == "" {
		return "", false
	}
	return idx.names[best], true
}
