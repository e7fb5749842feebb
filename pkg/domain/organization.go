// Package domain defines the student-organization records held in the roster
// document, the typed errors returned by operations over them, and the
// persistence contract implemented by the record stores.
package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EntityType identifies the kind of record an error or change refers to.
type EntityType string

// Entity identifiers used in errors and log fields.
const (
	// EntityOrganization identifies a top-level organization.
	EntityOrganization EntityType = "organization"
	// EntityBranch identifies a branch nested under an organization.
	EntityBranch EntityType = "branch"
	// EntityOfficer identifies an officer, keyed by name.
	EntityOfficer EntityType = "officer"
	// EntityMember identifies a member row, keyed by name.
	EntityMember EntityType = "member"
	// EntityApplicant identifies an applicant row, addressed by index.
	EntityApplicant EntityType = "applicant"
)

const (
	// NoPhoto is the image sentinel meaning "no image".
	NoPhoto = "No Photo"
	// MemberStatusActive is the status given to accepted applicants.
	MemberStatusActive = "Active"
	// DateLayout is the join-date format written for accepted applicants.
	DateLayout = "2006-01-02"
	// CurrentOfficersLabel selects the live officer roster instead of a history bucket.
	CurrentOfficersLabel = "Current Officers"
)

// Document is the whole persisted roster. It is always read and written as a unit.
type Document struct {
	Organizations []Organization `json:"organizations"`

	// Extra holds top-level keys other than organizations.
	Extra map[string]json.RawMessage `json:"-"`
}

// Organization is a top-level organization or a branch. Branches nest one
// level deep under a top-level organization and never carry branches of
// their own.
type Organization struct {
	ID             int                  `json:"id"`
	Name           string               `json:"name"`
	IsBranch       bool                 `json:"is_branch"`
	IsJoined       bool                 `json:"is_joined"`
	LogoPath       string               `json:"logo_path"`
	Brief          string               `json:"brief"`
	Description    string               `json:"description"`
	Officers       []Officer            `json:"officers"`
	OfficerHistory map[string][]Officer `json:"officer_history,omitempty"`
	Members        []Member             `json:"members"`
	Applicants     []Applicant          `json:"applicants"`
	Events         []Event              `json:"events"`
	Branches       []Organization       `json:"branches,omitempty"`

	// Extra holds keys this package does not model so they survive a round trip.
	Extra map[string]json.RawMessage `json:"-"`

	absent   []string
	parentID int
	nested   bool
}

// Officer is a named role holder. Name is the identity key within a roster.
type Officer struct {
	Name          string `json:"name"`
	Position      string `json:"position"`
	StartDate     string `json:"start_date"`
	PhotoPath     string `json:"photo_path"`
	CardImagePath string `json:"card_image_path"`

	Extra  map[string]json.RawMessage `json:"-"`
	absent []string
}

// Event is an organization activity shown on the detail view.
type Event struct {
	Name        string `json:"name"`
	Date        string `json:"date"`
	Description string `json:"description"`

	Extra  map[string]json.RawMessage `json:"-"`
	absent []string
}

// Ref addresses an organization inside a Document. Nested refs name a branch
// under the top-level organization ParentID; non-nested refs name a
// top-level entry, which may itself be a branch in legacy documents.
type Ref struct {
	ID       int  `json:"id"`
	Branch   bool `json:"branch,omitempty"`
	Nested   bool `json:"nested,omitempty"`
	ParentID int  `json:"parent_id,omitempty"`
}

func (r Ref) String() string {
	switch {
	case r.Nested:
		return fmt.Sprintf("%d/%d", r.ParentID, r.ID)
	case r.Branch:
		return fmt.Sprintf("branch:%d", r.ID)
	default:
		return strconv.Itoa(r.ID)
	}
}

// ParseRef parses the textual forms produced by Ref.String:
// "7" (organization), "7/2" (branch 2 of organization 7) and
// "branch:2" (top-level branch).
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "branch:"); ok {
		id, err := strconv.Atoi(rest)
		if err != nil {
			return Ref{}, fmt.Errorf("parse ref %q: %w", s, err)
		}
		return Ref{ID: id, Branch: true}, nil
	}
	if parent, child, ok := strings.Cut(s, "/"); ok {
		pid, err := strconv.Atoi(parent)
		if err != nil {
			return Ref{}, fmt.Errorf("parse ref %q: %w", s, err)
		}
		id, err := strconv.Atoi(child)
		if err != nil {
			return Ref{}, fmt.Errorf("parse ref %q: %w", s, err)
		}
		return Ref{ID: id, Branch: true, Nested: true, ParentID: pid}, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return Ref{}, fmt.Errorf("parse ref %q: %w", s, err)
	}
	return Ref{ID: id}, nil
}

// Ref returns the address of the organization within its document.
func (o Organization) Ref() Ref {
	return Ref{ID: o.ID, Branch: o.IsBranch, Nested: o.nested, ParentID: o.parentID}
}

// Entity reports whether the organization is a branch or a top-level organization.
func (o Organization) Entity() EntityType {
	if o.IsBranch {
		return EntityBranch
	}
	return EntityOrganization
}

// HasLogo reports whether the logo path is set to something other than the sentinel.
func (o Organization) HasLogo() bool {
	return HasImage(o.LogoPath)
}

// HasImage reports whether an image path refers to an image at all. It does
// not check that the image exists.
func HasImage(path string) bool {
	p := strings.TrimSpace(path)
	return p != "" && p != NoPhoto
}

// Find locates the organization addressed by ref. The returned pointer aliases
// the document, so mutations through it are visible to a later Save.
func (d *Document) Find(ref Ref) (*Organization, bool) {
	for i := range d.Organizations {
		org := &d.Organizations[i]
		if !ref.Nested {
			if org.ID == ref.ID && org.IsBranch == ref.Branch {
				return org, true
			}
			continue
		}
		if org.ID != ref.ParentID || org.IsBranch {
			continue
		}
		for j := range org.Branches {
			if org.Branches[j].ID == ref.ID {
				return &org.Branches[j], true
			}
		}
	}
	return nil, false
}

// Normalize replaces nil collections with empty ones and records each
// branch's position so Ref works on values copied out of the document.
// Stores call it after every load.
func (d *Document) Normalize() {
	if d.Organizations == nil {
		d.Organizations = []Organization{}
	}
	for i := range d.Organizations {
		org := &d.Organizations[i]
		org.normalize()
		org.nested, org.parentID = false, 0
		for j := range org.Branches {
			b := &org.Branches[j]
			b.normalize()
			b.nested, b.parentID = true, org.ID
		}
	}
}

func (o *Organization) normalize() {
	if o.Officers == nil {
		o.Officers = []Officer{}
	}
	if o.Members == nil {
		o.Members = []Member{}
	}
	if o.Applicants == nil {
		o.Applicants = []Applicant{}
	}
	if o.Events == nil {
		o.Events = []Event{}
	}
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := Document{Organizations: make([]Organization, len(d.Organizations)), Extra: cloneExtra(d.Extra)}
	for i, org := range d.Organizations {
		out.Organizations[i] = org.Clone()
	}
	return out
}

// Clone returns a deep copy of the organization including its branches.
func (o Organization) Clone() Organization {
	c := o
	c.Officers = cloneOfficers(o.Officers)
	c.Members = cloneSlice(o.Members)
	c.Applicants = cloneSlice(o.Applicants)
	for i := range c.Applicants {
		c.Applicants[i].Extra = cloneSlice(c.Applicants[i].Extra)
	}
	c.Events = cloneSlice(o.Events)
	for i := range c.Events {
		c.Events[i].Extra = cloneExtra(c.Events[i].Extra)
	}
	if o.OfficerHistory != nil {
		c.OfficerHistory = make(map[string][]Officer, len(o.OfficerHistory))
		for label, offs := range o.OfficerHistory {
			c.OfficerHistory[label] = cloneOfficers(offs)
		}
	}
	if o.Branches != nil {
		c.Branches = make([]Organization, len(o.Branches))
		for i, b := range o.Branches {
			c.Branches[i] = b.Clone()
		}
	}
	c.Extra = cloneExtra(o.Extra)
	return c
}

func cloneOfficers(s []Officer) []Officer {
	out := cloneSlice(s)
	for i := range out {
		out[i].Extra = cloneExtra(out[i].Extra)
	}
	return out
}

// cloneSlice copies s, keeping nil and empty distinct.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

type documentFields Document

var documentKeys = []string{"organizations"}

// UnmarshalJSON decodes the organizations and keeps other keys in Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var fields documentFields
	extra, _, err := decodeObject(data, &fields, documentKeys, nil)
	if err != nil {
		return err
	}
	*d = Document(fields)
	d.Extra = extra
	return nil
}

func (d Document) MarshalJSON() ([]byte, error) {
	return encodeObject(documentFields(d), d.Extra, nil)
}

// organizationFields has the same layout as Organization without its JSON methods.
type organizationFields Organization

var organizationKeys = []string{
	"id", "name", "is_branch", "is_joined", "logo_path", "brief", "description",
	"officers", "officer_history", "members", "applicants", "events", "branches",
}

// organizationTracked are optional keys that are remembered when missing so
// they stay missing while empty. officer_history and branches are omitted
// while nil instead.
var organizationTracked = []string{
	"logo_path", "brief", "description", "officers", "members", "applicants", "events",
}

// UnmarshalJSON decodes the known keys and keeps the rest in Extra.
func (o *Organization) UnmarshalJSON(data []byte) error {
	var fields organizationFields
	extra, absent, err := decodeObject(data, &fields, organizationKeys, organizationTracked)
	if err != nil {
		return err
	}
	*o = Organization(fields)
	o.Extra, o.absent = extra, absent
	return nil
}

// MarshalJSON writes the known keys and merges Extra back in. Known keys win
// over Extra entries with the same name. An empty but non-nil officer_history
// or branches is still written.
func (o Organization) MarshalJSON() ([]byte, error) {
	extra := o.Extra
	if (o.OfficerHistory != nil && len(o.OfficerHistory) == 0) || (o.Branches != nil && len(o.Branches) == 0) {
		extra = make(map[string]json.RawMessage, len(o.Extra)+2)
		for k, v := range o.Extra {
			extra[k] = v
		}
		if o.OfficerHistory != nil && len(o.OfficerHistory) == 0 {
			extra["officer_history"] = json.RawMessage("{}")
		}
		if o.Branches != nil && len(o.Branches) == 0 {
			extra["branches"] = json.RawMessage("[]")
		}
	}
	return encodeObject(organizationFields(o), extra, o.absent)
}

type officerFields Officer

var officerKeys = []string{"name", "position", "start_date", "photo_path", "card_image_path"}

// UnmarshalJSON decodes the known keys and keeps the rest in Extra.
func (o *Officer) UnmarshalJSON(data []byte) error {
	var fields officerFields
	extra, absent, err := decodeObject(data, &fields, officerKeys, officerKeys)
	if err != nil {
		return err
	}
	*o = Officer(fields)
	o.Extra, o.absent = extra, absent
	return nil
}

func (o Officer) MarshalJSON() ([]byte, error) {
	return encodeObject(officerFields(o), o.Extra, o.absent)
}

type eventFields Event

var eventKeys = []string{"name", "date", "description"}

func (e *Event) UnmarshalJSON(data []byte) error {
	var fields eventFields
	extra, absent, err := decodeObject(data, &fields, eventKeys, eventKeys)
	if err != nil {
		return err
	}
	*e = Event(fields)
	e.Extra, e.absent = extra, absent
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	return encodeObject(eventFields(e), e.Extra, e.absent)
}
