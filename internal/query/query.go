// Package query provides the read-only filters behind the organization,
// branch, member and applicant views. Every function is pure: it reads a
// document or a slice and returns a new result without touching the input.
package query

import (
	"sort"
	"strconv"
	"strings"

	"orgroster/pkg/domain"
)

// EmptyStateMessage is shown in place of a result list that matched nothing.
const EmptyStateMessage = "No Record(s) Found"

// Result is a filtered view over a slice. Indexes holds the position each
// item had in the unfiltered input so a row picked from the view can be
// mapped back to its source.
type Result[T any] struct {
	Items   []T
	Indexes []int
}

// Len returns the number of matches.
func (r Result[T]) Len() int { return len(r.Items) }

// Empty reports whether nothing matched.
func (r Result[T]) Empty() bool { return len(r.Items) == 0 }

// Message returns EmptyStateMessage when the result is empty and "" otherwise.
func (r Result[T]) Message() string {
	if r.Empty() {
		return EmptyStateMessage
	}
	return ""
}

// Source returns the input index of the row-th match.
func (r Result[T]) Source(row int) (int, bool) {
	if row < 0 || row >= len(r.Indexes) {
		return 0, false
	}
	return r.Indexes[row], true
}

func filter[T any](items []T, keep func(T) bool) Result[T] {
	out := Result[T]{Items: []T{}, Indexes: []int{}}
	for i, item := range items {
		if keep(item) {
			out.Items = append(out.Items, item)
			out.Indexes = append(out.Indexes, i)
		}
	}
	return out
}

// matcher returns a case-insensitive substring test for term. A blank term
// matches every name.
func matcher(term string) func(string) bool {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return func(string) bool { return true }
	}
	return func(name string) bool {
		return strings.Contains(strings.ToLower(name), needle)
	}
}

// FilterOrganizations keeps the entries whose branch flag equals wantBranch,
// whose joined flag equals *wantJoined when wantJoined is non-nil, and whose
// name contains term. Input order is preserved.
func FilterOrganizations(all []domain.Organization, term string, wantBranch bool, wantJoined *bool) Result[domain.Organization] {
	match := matcher(term)
	return filter(all, func(o domain.Organization) bool {
		if o.IsBranch != wantBranch {
			return false
		}
		if wantJoined != nil && o.IsJoined != *wantJoined {
			return false
		}
		return match(o.Name)
	})
}

// Flatten lists the top-level entries in document order followed by the
// nested branches of each organization in parent order.
func Flatten(doc domain.Document) []domain.Organization {
	out := make([]domain.Organization, 0, len(doc.Organizations))
	out = append(out, doc.Organizations...)
	for _, org := range doc.Organizations {
		out = append(out, org.Branches...)
	}
	return out
}

// Panes is the pair of lists shown on the listing screen.
type Panes struct {
	Joined  Result[domain.Organization]
	College Result[domain.Organization]
}

// Listing returns the joined pane and the all-entries pane for either the
// organization view or the branch view. Indexes refer to Flatten(doc).
func Listing(doc domain.Document, term string, wantBranch bool) Panes {
	all := Flatten(doc)
	joined := true
	return Panes{
		Joined:  FilterOrganizations(all, term, wantBranch, &joined),
		College: FilterOrganizations(all, term, wantBranch, nil),
	}
}

// FilterMembers matches term against member names only.
func FilterMembers(members []domain.Member, term string) Result[domain.Member] {
	match := matcher(term)
	return filter(members, func(m domain.Member) bool { return match(m.Name) })
}

// FilterApplicants matches term against applicant names.
func FilterApplicants(applicants []domain.Applicant, term string) Result[domain.Applicant] {
	match := matcher(term)
	return filter(applicants, func(a domain.Applicant) bool { return match(a.Name) })
}

// FindOrganization returns the first entry of Flatten(doc) with the given id
// and branch flag. Branch ids are only unique per parent, so callers that
// hold a parent should use Document.Find with a nested Ref instead.
func FindOrganization(doc domain.Document, id int, wantBranch bool) (domain.Organization, error) {
	for _, org := range Flatten(doc) {
		if org.ID == id && org.IsBranch == wantBranch {
			return org, nil
		}
	}
	entity := domain.EntityOrganization
	if wantBranch {
		entity = domain.EntityBranch
	}
	return domain.Organization{}, domain.NotFoundError{Entity: entity, Key: strconv.Itoa(id)}
}

// Semesters returns the labels offered by the officer view: the current
// roster first, then every history bucket in ascending order.
func Semesters(org domain.Organization) []string {
	labels := make([]string, 0, len(org.OfficerHistory))
	for label := range org.OfficerHistory {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return append([]string{domain.CurrentOfficersLabel}, labels...)
}

// OfficersFor returns the current roster for CurrentOfficersLabel, the
// matching history bucket otherwise, or an empty slice for unknown labels.
func OfficersFor(org domain.Organization, label string) []domain.Officer {
	if label == domain.CurrentOfficersLabel {
		return org.Officers
	}
	if offs, ok := org.OfficerHistory[label]; ok {
		return offs
	}
	return []domain.Officer{}
}
