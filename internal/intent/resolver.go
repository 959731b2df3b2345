// Package intent maps a spoken transcript to the app screen it asks for.
//
// Matching is a case-insensitive substring search over an ordered keyword
// table per language. Order is the tie-break: the first route with a
// matching keyword wins.
package intent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mitravox/internal/lang"
)

type compiledRoute struct {
	target   Target
	keywords []string
}

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	table  *Table
	routes map[lang.Code][]compiledRoute
}

func NewResolver(t *Table) *Resolver {
	r := &Resolver{
		table:  t,
		routes: make(map[lang.Code][]compiledRoute, len(t.Routes)),
	}

	for c, routes := range t.Routes {
		compiled := make([]compiledRoute, 0, len(routes))
		for _, rt := range routes {
			cr := compiledRoute{target: t.byID[rt.Target]}
			for _, kw := range rt.Keywords {
				cr.keywords = append(cr.keywords, normalize(kw))
			}
			compiled = append(compiled, cr)
		}
		r.routes[c] = compiled
	}

	return r
}

// Resolve returns the target the transcript asks for. The active language
// table is searched first; English screen names are accepted in any
// language as a second pass.
func (r *Resolver) Resolve(c lang.Code, transcript string) (Target, bool) {
	text := normalize(transcript)
	if text == "" {
		return Target{}, false
	}

	if t, ok := match(r.routes[c], text); ok {
		return t, true
	}
	if c != lang.English {
		return match(r.routes[lang.English], text)
	}

	return Target{}, false
}

func (r *Resolver) Table() *Table { return r.table }

func match(routes []compiledRoute, text string) (Target, bool) {
	for _, rt := range routes {
		for _, kw := range rt.keywords {
			if strings.Contains(text, kw) {
				return rt.target, true
			}
		}
	}
	return Target{}, false
}

// normalize lowercases s and collapses runs of whitespace into one space.
// A Caser keeps state, so a fresh one is made per call.
func normalize(s string) string {
	s = cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(s), " ")
}
