package jsonfile

import (
	"encoding/json"
	"fmt"

	"orgroster/pkg/domain"
)

// Legacy documents keep four flat lists instead of one organizations list.
const (
	legacyJoinedOrgs      = "joined_orgs"
	legacyCollegeOrgs     = "college_orgs"
	legacyJoinedBranches  = "joined_branches"
	legacyCollegeBranches = "college_branches"
)

func isLegacy(probe map[string]json.RawMessage) bool {
	for _, k := range []string{legacyJoinedOrgs, legacyCollegeOrgs, legacyJoinedBranches, legacyCollegeBranches} {
		if _, ok := probe[k]; ok {
			return true
		}
	}
	return false
}

// decodeLegacy converts the split form. College lists hold every entry and
// joined lists the subset the viewer belongs to; an entry is the same record
// in both lists when ID and name match. Joined-only entries whose ID is
// already taken are given the next free ID.
func decodeLegacy(probe map[string]json.RawMessage) (domain.Document, error) {
	var doc domain.Document
	orgs, err := mergeLegacy(probe, legacyCollegeOrgs, legacyJoinedOrgs, false)
	if err != nil {
		return doc, err
	}
	branches, err := mergeLegacy(probe, legacyCollegeBranches, legacyJoinedBranches, true)
	if err != nil {
		return doc, err
	}
	doc.Organizations = append(orgs, branches...)
	return doc, nil
}

func mergeLegacy(probe map[string]json.RawMessage, collegeKey, joinedKey string, branch bool) ([]domain.Organization, error) {
	college, err := legacyList(probe, collegeKey)
	if err != nil {
		return nil, err
	}
	joined, err := legacyList(probe, joinedKey)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Organization, 0, len(college)+len(joined))
	used := make(map[int]bool, len(college)+len(joined))
	maxID := 0
	for _, org := range college {
		org.IsBranch = branch
		org.IsJoined = false
		out = append(out, org)
		used[org.ID] = true
		maxID = max(maxID, org.ID)
	}
	for _, org := range joined {
		maxID = max(maxID, org.ID)
	}
	for _, org := range joined {
		merged := false
		for i := range out {
			if out[i].ID == org.ID && out[i].Name == org.Name {
				out[i].IsJoined = true
				merged = true
				break
			}
		}
		if merged {
			continue
		}
		org.IsBranch = branch
		org.IsJoined = true
		if used[org.ID] {
			maxID++
			org.ID = maxID
		}
		used[org.ID] = true
		out = append(out, org)
	}
	return out, nil
}

func legacyList(probe map[string]json.RawMessage, key string) ([]domain.Organization, error) {
	raw, ok := probe[key]
	if !ok {
		return nil, nil
	}
	var list []domain.Organization
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return list, nil
}
