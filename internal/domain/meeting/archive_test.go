package meeting_test

import (
	"slices"
	"testing"

	"waccamaw/internal/domain/meeting"
)

func mk(id, year, typ, vis string) meeting.Meeting {
	return meeting.Meeting{
		ID:             id,
		Title:          id,
		Type:           typ,
		Visibility:     vis,
		PathComponents: meeting.PathComponents{Type: typ, Year: year, Month: "01", Day: id},
	}
}

func ids(ms []meeting.Meeting) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func years(sections []meeting.Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Year)
	}
	return out
}

// TestFilterApply verifies the conjunction of year and type predicates.
func TestFilterApply(t *testing.T) {
	all := []meeting.Meeting{
		mk("01", "2024", "open", "public"),
		mk("02", "2024", "general", "public"),
		mk("03", "2023", "open", "members-only"),
		mk("04", "2023", "general", "public"),
	}
	tests := []struct {
		name   string
		filter meeting.Filter
		want   []string
	}{
		{"no filter", meeting.Filter{}, []string{"01", "02", "03", "04"}},
		{"year", meeting.Filter{Year: "2024"}, []string{"01", "02"}},
		{"type", meeting.Filter{Type: "open"}, []string{"01", "03"}},
		{"both", meeting.Filter{Year: "2023", Type: "general"}, []string{"04"}},
		{"none match", meeting.Filter{Year: "1999"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(all)
			if !slices.Equal(ids(got), tt.want) {
				t.Errorf("got %v, want %v", ids(got), tt.want)
			}
			for _, m := range got {
				if tt.filter.Year != "" && m.PathComponents.Year != tt.filter.Year {
					t.Errorf("meeting %s has year %s", m.ID, m.PathComponents.Year)
				}
				if tt.filter.Type != "" && m.Type != tt.filter.Type {
					t.Errorf("meeting %s has type %s", m.ID, m.Type)
				}
			}
		})
	}
}

// TestPublicOnly verifies members-only and unlabelled meetings are removed.
func TestPublicOnly(t *testing.T) {
	all := []meeting.Meeting{
		mk("01", "2024", "open", "public"),
		mk("02", "2024", "executive", "members-only"),
		mk("03", "2024", "general", ""),
	}
	got := meeting.PublicOnly(all)
	if !slices.Equal(ids(got), []string{"01"}) {
		t.Errorf("got %v", ids(got))
	}
}

// TestYearFilterScenario verifies a 2024 filter yields one Open Meeting card.
func TestYearFilterScenario(t *testing.T) {
	all := []meeting.Meeting{mk("01", "2024", "open", "public"), mk("02", "2023", "general", "public")}
	got := meeting.Filter{Year: "2024"}.Apply(all)
	if len(got) != 1 {
		t.Fatalf("expected 1 meeting, got %d", len(got))
	}
	if name := meeting.TypeDisplayName(got[0].Type); name != "Open Meeting" {
		t.Errorf("got %q", name)
	}
}

// TestGroupByYear verifies descending order with Unknown last.
func TestGroupByYear(t *testing.T) {
	all := []meeting.Meeting{
		mk("01", "2022", "open", "public"),
		mk("02", "", "open", "public"),
		mk("03", "2024", "open", "public"),
		mk("04", "2022", "general", "public"),
		mk("05", "999", "open", "public"),
	}
	sections := meeting.GroupByYear(all, meeting.SourceAPI)
	want := []string{"2024", "2022", "999", "Unknown"}
	if !slices.Equal(years(sections), want) {
		t.Errorf("years = %v, want %v", years(sections), want)
	}
	if !slices.Equal(ids(sections[1].API), []string{"01", "04"}) {
		t.Errorf("2022 order = %v", ids(sections[1].API))
	}
}

// TestYears verifies distinct years, most recent first.
func TestYears(t *testing.T) {
	all := []meeting.Meeting{mk("01", "2023", "open", "public"), mk("02", "2024", "open", "public"), mk("03", "2023", "open", "public"), mk("04", "", "open", "public")}
	if got := meeting.Years(all); !slices.Equal(got, []string{"2024", "2023"}) {
		t.Errorf("got %v", got)
	}
}

// TestMergeSections verifies insertion into existing and new years.
func TestMergeSections(t *testing.T) {
	legacy := meeting.GroupByYear([]meeting.Meeting{
		mk("10", "2023", "general", "public"),
		mk("11", "2023", "general", "public"),
		mk("12", "2020", "general", "public"),
	}, meeting.SourceLegacy)

	api := []meeting.Meeting{
		mk("20", "2024", "open", "public"),
		mk("21", "2023", "open", "public"),
		mk("22", "2021", "open", "public"),
	}

	merged := meeting.MergeSections(legacy, api)
	if want := []string{"2024", "2023", "2021", "2020"}; !slices.Equal(years(merged), want) {
		t.Fatalf("years = %v, want %v", years(merged), want)
	}

	y2023 := merged[1]
	if !slices.Equal(ids(y2023.Meetings()), []string{"21", "10", "11"}) {
		t.Errorf("2023 order = %v", ids(y2023.Meetings()))
	}
	if y2023.CountLabel() != "(1 API + 2 legacy)" {
		t.Errorf("2023 label = %q", y2023.CountLabel())
	}
	if merged[0].CountLabel() != "(1 from API)" {
		t.Errorf("2024 label = %q", merged[0].CountLabel())
	}
	if merged[3].CountLabel() != "(1)" {
		t.Errorf("2020 label = %q", merged[3].CountLabel())
	}

	// base must not be mutated
	if len(legacy[0].API) != 0 {
		t.Error("base sections were mutated")
	}
}

// TestMergeSectionsIdempotent verifies merging the same set twice changes nothing.
func TestMergeSectionsIdempotent(t *testing.T) {
	legacy := meeting.GroupByYear([]meeting.Meeting{mk("10", "2023", "general", "public")}, meeting.SourceLegacy)
	api := []meeting.Meeting{mk("20", "2023", "open", "public"), mk("21", "2025", "open", "public")}

	once := meeting.MergeSections(legacy, api)
	twice := meeting.MergeSections(once, api)

	if !slices.Equal(years(once), years(twice)) {
		t.Fatalf("years differ: %v vs %v", years(once), years(twice))
	}
	for i := range once {
		if !slices.Equal(ids(once[i].Meetings()), ids(twice[i].Meetings())) {
			t.Errorf("section %s differs: %v vs %v", once[i].Year, ids(once[i].Meetings()), ids(twice[i].Meetings()))
		}
	}
}

// TestMergeSectionsDeduplicates verifies an API meeting replaces its legacy copy.
func TestMergeSectionsDeduplicates(t *testing.T) {
	dup := mk("30", "2022", "general", "public")
	legacyCopy := dup
	legacyCopy.ID = "legacy-30"
	legacy := meeting.GroupByYear([]meeting.Meeting{legacyCopy}, meeting.SourceLegacy)

	merged := meeting.MergeSections(legacy, []meeting.Meeting{dup})
	if len(merged) != 1 || merged[0].Count() != 1 {
		t.Fatalf("expected one card, got %+v", merged)
	}
	if merged[0].Meetings()[0].ID != "30" {
		t.Errorf("expected API copy to win, got %s", merged[0].Meetings()[0].ID)
	}
}

// TestRecentAndExpand verifies year elision and the expanded marker.
func TestRecentAndExpand(t *testing.T) {
	sections := meeting.GroupByYear([]meeting.Meeting{
		mk("01", "2025", "open", "public"),
		mk("02", "2024", "open", "public"),
		mk("03", "2023", "open", "public"),
	}, meeting.SourceAPI)

	if got := meeting.Recent(sections, 2, false); !slices.Equal(years(got), []string{"2025", "2024"}) {
		t.Errorf("recent = %v", years(got))
	}
	if got := meeting.Recent(sections, 2, true); len(got) != 3 {
		t.Errorf("show all = %v", years(got))
	}

	meeting.ExpandYear(sections, "2024")
	for _, s := range sections {
		if s.Expanded != (s.Year == "2024") {
			t.Errorf("section %s expanded=%v", s.Year, s.Expanded)
		}
	}
}
