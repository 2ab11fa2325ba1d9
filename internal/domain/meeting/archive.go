package meeting

import (
	"fmt"
	"slices"
	"strconv"
)

// Filter is an optional year and an optional type. Both are conjunctive.
type Filter struct {
	Year string
	Type string
}

// Active reports whether any predicate is set.
func (f Filter) Active() bool {
	return f.Year != "" || f.Type != ""
}

// Matches reports whether m satisfies every set predicate.
func (f Filter) Matches(m Meeting) bool {
	if f.Year != "" && m.PathComponents.Year != f.Year {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	return true
}

// Apply returns the meetings of all matching f, preserving order.
// INVARIANT: all is not mutated
func (f Filter) Apply(all []Meeting) []Meeting {
	out := make([]Meeting, 0, len(all))
	for _, m := range all {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}

// PublicOnly returns the meetings an unauthenticated caller may see.
// POST: every returned meeting has visibility "public"
func PublicOnly(all []Meeting) []Meeting {
	out := make([]Meeting, 0, len(all))
	for _, m := range all {
		if m.IsPublic() {
			out = append(out, m)
		}
	}
	return out
}

// Years returns the distinct known years of all, most recent first.
func Years(all []Meeting) []string {
	seen := make(map[string]bool)
	var years []string
	for _, m := range all {
		y := m.PathComponents.Year
		if y == "" || seen[y] {
			continue
		}
		seen[y] = true
		years = append(years, y)
	}
	slices.SortFunc(years, compareYears)
	return years
}

// Section is one year of the archive. API meetings render before legacy ones.
type Section struct {
	Year     string
	API      []Meeting
	Legacy   []Meeting
	Expanded bool
}

// Meetings returns the section's cards in render order.
func (s Section) Meetings() []Meeting {
	out := make([]Meeting, 0, len(s.API)+len(s.Legacy))
	out = append(out, s.API...)
	return append(out, s.Legacy...)
}

// Count returns the number of cards in the section.
func (s Section) Count() int {
	return len(s.API) + len(s.Legacy)
}

// CountLabel describes where the section's cards came from.
func (s Section) CountLabel() string {
	switch {
	case len(s.API) > 0 && len(s.Legacy) > 0:
		return fmt.Sprintf("(%d API + %d legacy)", len(s.API), len(s.Legacy))
	case len(s.API) > 0:
		return fmt.Sprintf("(%d from API)", len(s.API))
	default:
		return fmt.Sprintf("(%d)", len(s.Legacy))
	}
}

// compareYears orders numeric years descending with UnknownYear last.
func compareYears(a, b string) int {
	if a == b {
		return 0
	}
	if a == UnknownYear {
		return 1
	}
	if b == UnknownYear {
		return -1
	}
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		switch {
		case ai > bi:
			return -1
		case ai < bi:
			return 1
		}
		return 0
	}
	if a > b {
		return -1
	}
	return 1
}

// GroupByYear buckets meetings by year. Within a year the input order is kept.
// POST: sections are strictly descending by year, UnknownYear last
func GroupByYear(ms []Meeting, source Source) []Section {
	index := make(map[string]int)
	var sections []Section
	for _, m := range ms {
		y := m.Year()
		i, ok := index[y]
		if !ok {
			i = len(sections)
			index[y] = i
			sections = append(sections, Section{Year: y})
		}
		if source == SourceLegacy {
			sections[i].Legacy = append(sections[i].Legacy, m)
		} else {
			sections[i].API = append(sections[i].API, m)
		}
	}
	slices.SortStableFunc(sections, func(a, b Section) int { return compareYears(a.Year, b.Year) })
	return sections
}

// MergeSections merges API meetings into legacy year sections. Meetings are
// prepended to an existing year or get a new section in sorted position. A
// legacy card with the same URL as an API meeting is replaced by it.
// PRE: base sections are distinct by year
// POST: sections are strictly descending by year
// INVARIANT: MergeSections(MergeSections(b, a), a) equals MergeSections(b, a)
func MergeSections(base []Section, api []Meeting) []Section {
	out := make([]Section, len(base))
	index := make(map[string]int, len(base))
	for i, s := range base {
		out[i] = Section{
			Year:     s.Year,
			API:      slices.Clone(s.API),
			Legacy:   slices.Clone(s.Legacy),
			Expanded: s.Expanded,
		}
		index[s.Year] = i
	}

	for _, sec := range GroupByYear(api, SourceAPI) {
		i, ok := index[sec.Year]
		if !ok {
			index[sec.Year] = len(out)
			out = append(out, sec)
			continue
		}
		target := &out[i]
		var fresh []Meeting
		for _, m := range sec.API {
			u := m.URL()
			if slices.ContainsFunc(target.API, func(x Meeting) bool { return x.URL() == u }) {
				continue
			}
			fresh = append(fresh, m)
		}
		target.API = append(fresh, target.API...)
		target.Legacy = slices.DeleteFunc(target.Legacy, func(x Meeting) bool {
			u := x.URL()
			return slices.ContainsFunc(target.API, func(a Meeting) bool { return a.URL() == u })
		})
	}

	slices.SortStableFunc(out, func(a, b Section) int { return compareYears(a.Year, b.Year) })
	return out
}

// ExpandYear marks the section for year as expanded and all others collapsed.
func ExpandYear(sections []Section, year string) {
	for i := range sections {
		sections[i].Expanded = sections[i].Year == year
	}
}

// Recent returns the first n sections, or all of them when showAll is set.
func Recent(sections []Section, n int, showAll bool) []Section {
	if showAll || n <= 0 || len(sections) <= n {
		return sections
	}
	return sections[:n]
}
