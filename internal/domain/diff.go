package domain

import "sort"

// DiffResult holds the three disjoint change sets between a desired and a persisted association set.
type DiffResult struct {
	ToCreate []Association `json:"toCreate"`
	ToDelete []Association `json:"toDelete"`
	ToUpdate []Association `json:"toUpdate"`
}

func (r DiffResult) HasChanges() bool {
	return len(r.ToCreate) > 0 || len(r.ToDelete) > 0 || len(r.ToUpdate) > 0
}

func (r DiffResult) Len() int {
	return len(r.ToCreate) + len(r.ToDelete) + len(r.ToUpdate)
}

// Diff computes what must be created, deleted and updated to turn persisted into desired.
//
// Items are matched by ID. An item present on both sides is an update when any of
// fields differs; the update carries the desired values and the persisted ConnectionID.
// Every output slice is sorted by ID, so the result does not depend on input order.
//
// A duplicate ID in desired is resolved last-write-wins. A duplicate ID in persisted
// matches its first occurrence; later duplicates are extra link records and go to ToDelete.
func Diff(desired, persisted []Association, fields ...Field) DiffResult {
	desiredByID := make(map[string]Association, len(desired))
	for _, a := range desired {
		desiredByID[a.ID] = a
	}

	persistedByID := make(map[string]Association, len(persisted))
	result := DiffResult{
		ToCreate: []Association{},
		ToDelete: []Association{},
		ToUpdate: []Association{},
	}

	for _, p := range persisted {
		if _, seen := persistedByID[p.ID]; seen {
			result.ToDelete = append(result.ToDelete, p)
			continue
		}
		persistedByID[p.ID] = p

		d, wanted := desiredByID[p.ID]
		if !wanted {
			result.ToDelete = append(result.ToDelete, p)
			continue
		}

		for _, f := range fields {
			if d.differs(p, f) {
				d.ConnectionID = p.ConnectionID
				result.ToUpdate = append(result.ToUpdate, d)
				break
			}
		}
	}

	for id, d := range desiredByID {
		if _, exists := persistedByID[id]; !exists {
			result.ToCreate = append(result.ToCreate, d)
		}
	}

	sortAssociations(result.ToCreate)
	sortAssociations(result.ToDelete)
	sortAssociations(result.ToUpdate)
	return result
}

func sortAssociations(items []Association) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].ID != items[j].ID {
			return items[i].ID < items[j].ID
		}
		return items[i].ConnectionID < items[j].ConnectionID
	})
}
