package domain

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of the document: branches are
// flagged as branches and carry no branches of their own, top-level IDs are
// unique per kind, and officer names are unique within each roster and
// history bucket. Free-text and date fields are not checked.
func (d Document) Validate() error {
	var errs []error
	type topKey struct {
		id     int
		branch bool
	}
	seen := make(map[topKey]bool, len(d.Organizations))
	for i, org := range d.Organizations {
		path := fmt.Sprintf("organizations[%d]", i)
		k := topKey{org.ID, org.IsBranch}
		if seen[k] {
			errs = append(errs, ValidationError{Field: path + ".id", Reason: "duplicate " + string(org.Entity()) + " id " + key(org.ID)})
		}
		seen[k] = true
		if org.IsBranch && len(org.Branches) > 0 {
			errs = append(errs, ValidationError{Field: path + ".branches", Reason: "a branch cannot contain branches"})
		}
		errs = append(errs, validateRosters(path, org)...)
		branchIDs := make(map[int]bool, len(org.Branches))
		for j, b := range org.Branches {
			bpath := fmt.Sprintf("%s.branches[%d]", path, j)
			if !b.IsBranch {
				errs = append(errs, ValidationError{Field: bpath + ".is_branch", Reason: "nested organization must be a branch"})
			}
			if len(b.Branches) > 0 {
				errs = append(errs, ValidationError{Field: bpath + ".branches", Reason: "branches nest one level only"})
			}
			if branchIDs[b.ID] {
				errs = append(errs, ValidationError{Field: bpath + ".id", Reason: "duplicate branch id " + key(b.ID)})
			}
			branchIDs[b.ID] = true
			errs = append(errs, validateRosters(bpath, b)...)
		}
	}
	return errors.Join(errs...)
}

func validateRosters(path string, org Organization) []error {
	var errs []error
	if name, dup := duplicateOfficer(org.Officers); dup {
		errs = append(errs, ValidationError{Field: path + ".officers", Reason: "duplicate officer " + name})
	}
	for label, offs := range org.OfficerHistory {
		if name, dup := duplicateOfficer(offs); dup {
			errs = append(errs, ValidationError{Field: path + ".officer_history[" + label + "]", Reason: "duplicate officer " + name})
		}
	}
	return errs
}

func duplicateOfficer(offs []Officer) (string, bool) {
	seen := make(map[string]bool, len(offs))
	for _, off := range offs {
		if seen[off.Name] {
			return off.Name, true
		}
		seen[off.Name] = true
	}
	return "", false
}
