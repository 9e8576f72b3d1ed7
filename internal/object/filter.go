package object

import "time"

// Filter selects objects in listings.
type Filter interface {
	Match(info *Info) bool
}

type filterFunc func(*Info) bool

func (f filterFunc) Match(info *Info) bool { return f(info) }

// AFTER matches objects created after t.
func AFTER(t time.Time) Filter {
	return filterFunc(func(info *Info) bool { return info.After(t) })
}

// BEFORE matches objects created before t.
func BEFORE(t time.Time) Filter {
	return filterFunc(func(info *Info) bool { return info.Before(t) })
}

// MATCH matches objects carrying the tag name=value.
func MATCH(name, value string) Filter {
	return filterFunc(func(info *Info) bool { return info.Match(name, value) })
}

// AND matches objects that all filters match.
func AND(filters ...Filter) Filter {
	return filterFunc(func(info *Info) bool { return MatchAll(info, filters...) })
}

// OR matches objects that at least one filter matches.
func OR(filters ...Filter) Filter {
	return filterFunc(func(info *Info) bool {
		for _, f := range filters {
			if f.Match(info) {
				return true
			}
		}
		return false
	})
}

// NOT inverts a filter.
func NOT(filter Filter) Filter {
	return filterFunc(func(info *Info) bool { return !filter.Match(info) })
}

// MatchAll reports whether info matches every filter. An empty list matches
// everything.
func MatchAll(info *Info, filters ...Filter) bool {
	for _, f := range filters {
		if !f.Match(info) {
			return false
		}
	}
	return true
}
