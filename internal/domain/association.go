package domain

// Field names a mutable attribute of an association that the diff may compare.
type Field string

const (
	FieldRelevance Field = "relevanceId"
	FieldPrimary   Field = "primary"
	FieldRank      Field = "rank"
)

// Association links a primary entity (resource, node) to a secondary one
// (resource type, filter, parent node).
//
// ID identifies the secondary entity and is unique within one primary entity's set.
// ConnectionID identifies the link record and exists only once the link is persisted.
type Association struct {
	ID           string `json:"id"`
	ConnectionID string `json:"connectionId,omitempty"`
	RelevanceID  string `json:"relevanceId,omitempty"`
	Primary      bool   `json:"primary,omitempty"`
	Rank         int    `json:"rank,omitempty"`
}

func (a Association) Persisted() bool {
	return a.ConnectionID != ""
}

func (a Association) differs(b Association, field Field) bool {
	switch field {
	case FieldRelevance:
		return a.RelevanceID != b.RelevanceID
	case FieldPrimary:
		return a.Primary != b.Primary
	case FieldRank:
		return a.Rank != b.Rank
	default:
		return false
	}
}

// AssociationKind selects which association set of a primary entity is synced.
type AssociationKind string

const (
	KindResourceTypes  AssociationKind = "resource-types"
	KindFilters        AssociationKind = "filters"
	KindTopicResources AssociationKind = "topic-resources"
	KindNodeParents    AssociationKind = "node-parents"
)

var AssociationKinds = []AssociationKind{
	KindResourceTypes,
	KindFilters,
	KindTopicResources,
	KindNodeParents,
}

func (k AssociationKind) IsValid() bool {
	for _, valid := range AssociationKinds {
		if k == valid {
			return true
		}
	}
	return false
}

// UpdateFields lists the fields whose change makes an existing link an update.
//
// Resource types have no mutable fields: changing one is a delete plus a create.
// Topic resource ranks are owned by reorder and never compared.
func (k AssociationKind) UpdateFields() []Field {
	switch k {
	case KindFilters:
		return []Field{FieldRelevance}
	case KindTopicResources:
		return []Field{FieldPrimary, FieldRelevance}
	case KindNodeParents:
		return []Field{FieldPrimary, FieldRelevance}
	default:
		return nil
	}
}
