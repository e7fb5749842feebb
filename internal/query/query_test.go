package query

import (
	"errors"
	"reflect"
	"testing"

	"orgroster/pkg/domain"
)

func fixture() domain.Document {
	doc := domain.Document{Organizations: []domain.Organization{
		{
			ID: 1, Name: "Tech Society", IsJoined: true,
			Officers: []domain.Officer{{Name: "Ruben", Position: "President"}},
			OfficerHistory: map[string][]domain.Officer{
				"2024-2025 2nd Semester": {{Name: "Lia", Position: "President"}},
				"2023-2024 1st Semester": {{Name: "Mo", Position: "Treasurer"}},
			},
			Members: []domain.Member{
				{Name: "Alice", Position: "Member"},
				{Name: "Bob", Position: "Alice's Mentor"},
				{Name: "alicia", Position: "Member"},
			},
			Applicants: []domain.Applicant{{Name: "Carol"}, {Name: "Dan"}, {Name: "Caroline"}},
			Branches: []domain.Organization{
				{ID: 1, Name: "Tech Subgroup", IsBranch: true, IsJoined: true},
				{ID: 2, Name: "Robotics Wing", IsBranch: true},
			},
		},
		{ID: 2, Name: "Chess Club"},
		{ID: 3, Name: "Tech Guild", IsJoined: true},
	}}
	doc.Normalize()
	return doc
}

func names(orgs []domain.Organization) []string {
	out := make([]string, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, o.Name)
	}
	return out
}

func TestFilterOrganizations(t *testing.T) {
	all := Flatten(fixture())
	yes, no := true, false
	cases := []struct {
		name   string
		term   string
		branch bool
		joined *bool
		want   []string
	}{
		{"all organizations", "", false, nil, []string{"Tech Society", "Chess Club", "Tech Guild"}},
		{"joined organizations", "", false, &yes, []string{"Tech Society", "Tech Guild"}},
		{"not joined", "", false, &no, []string{"Chess Club"}},
		{"term is case insensitive and trimmed", "  TECH ", false, nil, []string{"Tech Society", "Tech Guild"}},
		{"branches only", "", true, nil, []string{"Tech Subgroup", "Robotics Wing"}},
		{"joined branches with term", "tech", true, &yes, []string{"Tech Subgroup"}},
		{"no match", "zzz", false, nil, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterOrganizations(all, tc.term, tc.branch, tc.joined)
			if !reflect.DeepEqual(names(got.Items), tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, names(got.Items))
			}
			if got.Empty() != (len(tc.want) == 0) {
				t.Fatalf("Empty() = %v for %v", got.Empty(), tc.want)
			}
		})
	}
}

func TestEmptyStateMessage(t *testing.T) {
	res := FilterMembers(nil, "x")
	if !res.Empty() || res.Message() != "No Record(s) Found" {
		t.Fatalf("expected empty state, got %+v %q", res, res.Message())
	}
	if res.Items == nil {
		t.Fatalf("expected non-nil empty items")
	}
	full := FilterMembers(fixture().Organizations[0].Members, "")
	if full.Message() != "" || full.Len() != 3 {
		t.Fatalf("expected three members without message, got %d %q", full.Len(), full.Message())
	}
}

func TestFilterMembersMatchesNameOnly(t *testing.T) {
	members := fixture().Organizations[0].Members
	res := FilterMembers(members, "ALIC")
	if got := len(res.Items); got != 2 {
		t.Fatalf("expected Alice and alicia only, got %+v", res.Items)
	}
	if !reflect.DeepEqual(res.Indexes, []int{0, 2}) {
		t.Fatalf("expected source indexes [0 2], got %v", res.Indexes)
	}
	if idx, ok := res.Source(1); !ok || idx != 2 {
		t.Fatalf("expected row 1 to map to member 2, got %d %v", idx, ok)
	}
	if _, ok := res.Source(5); ok {
		t.Fatalf("expected out of range row to fail")
	}
}

func TestFilterApplicants(t *testing.T) {
	res := FilterApplicants(fixture().Organizations[0].Applicants, "carol")
	if !reflect.DeepEqual(res.Indexes, []int{0, 2}) {
		t.Fatalf("expected applicants 0 and 2, got %v", res.Indexes)
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	doc := fixture()
	before := doc.Clone()
	_ = Listing(doc, "tech", false)
	_ = FilterMembers(doc.Organizations[0].Members, "bob")
	if !reflect.DeepEqual(doc, before) {
		t.Fatalf("filters must not modify the document")
	}
}

func TestListingPanes(t *testing.T) {
	doc := fixture()
	orgs := Listing(doc, "", false)
	if !reflect.DeepEqual(names(orgs.Joined.Items), []string{"Tech Society", "Tech Guild"}) {
		t.Fatalf("unexpected joined pane %v", names(orgs.Joined.Items))
	}
	if orgs.College.Len() != 3 {
		t.Fatalf("expected three organizations in college pane, got %d", orgs.College.Len())
	}
	branches := Listing(doc, "robot", true)
	if !branches.Joined.Empty() || branches.Joined.Message() != EmptyStateMessage {
		t.Fatalf("expected empty joined branch pane")
	}
	if !reflect.DeepEqual(names(branches.College.Items), []string{"Robotics Wing"}) {
		t.Fatalf("unexpected branch pane %v", names(branches.College.Items))
	}
	if ref := branches.College.Items[0].Ref(); !ref.Nested || ref.ParentID != 1 {
		t.Fatalf("expected nested ref under organization 1, got %+v", ref)
	}
}

func TestFindOrganization(t *testing.T) {
	doc := fixture()
	org, err := FindOrganization(doc, 1, true)
	if err != nil || org.Name != "Tech Subgroup" {
		t.Fatalf("expected Tech Subgroup, got %q %v", org.Name, err)
	}
	org, err = FindOrganization(doc, 1, false)
	if err != nil || org.Name != "Tech Society" {
		t.Fatalf("expected Tech Society, got %q %v", org.Name, err)
	}
	_, err = FindOrganization(doc, 99, false)
	var nf domain.NotFoundError
	if !errors.As(err, &nf) || nf.Key != "99" || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for 99, got %v", err)
	}
}

func TestSemestersAndOfficers(t *testing.T) {
	org := fixture().Organizations[0]
	want := []string{"Current Officers", "2023-2024 1st Semester", "2024-2025 2nd Semester"}
	if got := Semesters(org); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if offs := OfficersFor(org, "Current Officers"); len(offs) != 1 || offs[0].Name != "Ruben" {
		t.Fatalf("expected current roster, got %+v", offs)
	}
	if offs := OfficersFor(org, "2024-2025 2nd Semester"); len(offs) != 1 || offs[0].Name != "Lia" {
		t.Fatalf("expected history bucket, got %+v", offs)
	}
	if offs := OfficersFor(org, "1999"); offs == nil || len(offs) != 0 {
		t.Fatalf("expected empty roster for unknown label, got %+v", offs)
	}
	if got := Semesters(domain.Organization{}); !reflect.DeepEqual(got, []string{"Current Officers"}) {
		t.Fatalf("expected only the current label, got %v", got)
	}
}
