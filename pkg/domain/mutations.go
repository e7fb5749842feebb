package domain

import (
	"strconv"
	"time"
)

// AcceptApplicant moves the applicant at index into the member list as an
// active member joined on today. The applicant is removed from the queue.
func (o *Organization) AcceptApplicant(index int, today time.Time) (Member, error) {
	applicant, err := o.removeApplicant(index)
	if err != nil {
		return Member{}, err
	}
	member := Member{
		Name:     applicant.Name,
		Position: applicant.Position,
		Status:   MemberStatusActive,
		JoinDate: today.Format(DateLayout),
	}
	o.Members = append(o.Members, member)
	return member, nil
}

// DeclineApplicant drops the applicant at index without creating a member.
func (o *Organization) DeclineApplicant(index int) (Applicant, error) {
	return o.removeApplicant(index)
}

func (o *Organization) removeApplicant(index int) (Applicant, error) {
	if index < 0 || index >= len(o.Applicants) {
		return Applicant{}, IndexOutOfRangeError{Entity: EntityApplicant, Index: index, Len: len(o.Applicants)}
	}
	applicant := o.Applicants[index]
	o.Applicants = append(o.Applicants[:index:index], o.Applicants[index+1:]...)
	return applicant, nil
}

// MemberIndex returns the index of the first member named key, or -1.
func (o *Organization) MemberIndex(key string) int {
	for i, m := range o.Members {
		if m.Name == key {
			return i
		}
	}
	return -1
}

// EditMember sets the position of the first member named key.
func (o *Organization) EditMember(key, position string) (Member, error) {
	i := o.MemberIndex(key)
	if i < 0 {
		return Member{}, NotFoundError{Entity: EntityMember, Key: key}
	}
	o.Members[i].Position = position
	return o.Members[i], nil
}

// KickMember removes the first member named key.
func (o *Organization) KickMember(key string) (Member, error) {
	i := o.MemberIndex(key)
	if i < 0 {
		return Member{}, NotFoundError{Entity: EntityMember, Key: key}
	}
	removed := o.Members[i]
	o.Members = append(o.Members[:i:i], o.Members[i+1:]...)
	return removed, nil
}

// UpdateOfficer replaces the officer with the same name in the current roster
// and in every officer-history bucket that lists them. It returns the number
// of records replaced; zero means the name appears nowhere.
func (o *Organization) UpdateOfficer(updated Officer) (int, error) {
	replaced := 0
	if i := officerIndex(o.Officers, updated.Name); i >= 0 {
		o.Officers[i] = updated
		replaced++
	}
	for label, offs := range o.OfficerHistory {
		if i := officerIndex(offs, updated.Name); i >= 0 {
			o.OfficerHistory[label][i] = updated
			replaced++
		}
	}
	if replaced == 0 {
		return 0, NotFoundError{Entity: EntityOfficer, Key: updated.Name}
	}
	return replaced, nil
}

// UpdateMetadata overwrites the editable descriptive fields.
func (o *Organization) UpdateMetadata(brief, description, logoPath string) {
	o.Brief = brief
	o.Description = description
	o.LogoPath = logoPath
}

// HasOfficer reports whether name is on the current officer roster.
func (o Organization) HasOfficer(name string) bool {
	return officerIndex(o.Officers, name) >= 0
}

// Officer returns the current officer with the given name.
func (o Organization) Officer(name string) (Officer, error) {
	if i := officerIndex(o.Officers, name); i >= 0 {
		return o.Officers[i], nil
	}
	return Officer{}, NotFoundError{Entity: EntityOfficer, Key: name}
}

// Applicant returns the applicant at index.
func (o Organization) Applicant(index int) (Applicant, error) {
	if index < 0 || index >= len(o.Applicants) {
		return Applicant{}, IndexOutOfRangeError{Entity: EntityApplicant, Index: index, Len: len(o.Applicants)}
	}
	return o.Applicants[index], nil
}

func officerIndex(offs []Officer, name string) int {
	for i, off := range offs {
		if off.Name == name {
			return i
		}
	}
	return -1
}

// key renders an organization ID for error messages.
func key(id int) string { return strconv.Itoa(id) }
