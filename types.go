package taxonomy

const (
	// VersionHeader selects the taxonomy working copy a request reads or writes.
	VersionHeader  string = "VersionHash"
	DefaultVersion string = "default"
)

type NodeType string

const (
	NodeTypeSubject   NodeType = "SUBJECT"
	NodeTypeTopic     NodeType = "TOPIC"
	NodeTypeNode      NodeType = "NODE"
	NodeTypeProgramme NodeType = "PROGRAMME"
	NodeTypeResource  NodeType = "RESOURCE"
)

// connection types reported by GET /nodes/{id}/connections
const (
	ConnectionTypeParent   string = "parent-topic"
	ConnectionTypeSubtopic string = "subtopic"
	ConnectionTypeResource string = "resource"
)

type Metadata struct {
	GrepCodes    []string          `json:"grepCodes"`
	Visible      bool              `json:"visible"`
	CustomFields map[string]string `json:"customFields"`
}

type Node struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ContentURI  *string  `json:"contentUri,omitempty"`
	Path        string   `json:"path,omitempty"`
	Paths       []string `json:"paths,omitempty"`
	NodeType    NodeType `json:"nodeType"`
	Metadata    Metadata `json:"metadata"`
	RelevanceID *string  `json:"relevanceId,omitempty"`
	Language    string   `json:"language,omitempty"`
}

// NodeChild is a node as listed under its parent, carrying the connection it was reached through.
type NodeChild struct {
	Node
	ParentID     string `json:"parentId"`
	ConnectionID string `json:"connectionId"`
	Rank         int    `json:"rank"`
	IsPrimary    bool   `json:"isPrimary"`
}

type NodeResource struct {
	Node
	ParentID     string                   `json:"parentId"`
	ConnectionID string                   `json:"connectionId"`
	Rank         int                      `json:"rank"`
	IsPrimary    bool                     `json:"isPrimary"`
	ResourceType []ResourceTypeConnection `json:"resourceTypes,omitempty"`
}

type Connection struct {
	ConnectionID string   `json:"connectionId"`
	TargetID     string   `json:"targetId"`
	Type         string   `json:"type"`
	IsPrimary    bool     `json:"isPrimary"`
	Rank         int      `json:"rank"`
	RelevanceID  *string  `json:"relevanceId,omitempty"`
	Paths        []string `json:"paths,omitempty"`
}

type ResourceTypeConnection struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ParentID     *string `json:"parentId,omitempty"`
	ConnectionID string  `json:"connectionId"`
}

type FilterConnection struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ConnectionID string `json:"connectionId"`
	RelevanceID  string `json:"relevanceId"`
}

// request bodies

type NodePostPut struct {
	ID         *string  `json:"id,omitempty"`
	Name       string   `json:"name"`
	NodeType   NodeType `json:"nodeType"`
	ContentURI *string  `json:"contentUri,omitempty"`
	Visible    *bool    `json:"visible,omitempty"`
}

type MetadataPatch struct {
	GrepCodes    *[]string          `json:"grepCodes,omitempty"`
	Visible      *bool              `json:"visible,omitempty"`
	CustomFields *map[string]string `json:"customFields,omitempty"`
}

type NodeConnectionPost struct {
	ParentID    string  `json:"parentId"`
	ChildID     string  `json:"childId"`
	Primary     *bool   `json:"primary,omitempty"`
	Rank        *int    `json:"rank,omitempty"`
	RelevanceID *string `json:"relevanceId,omitempty"`
}

type NodeResourcePost struct {
	NodeID      string  `json:"nodeId"`
	ResourceID  string  `json:"resourceId"`
	Primary     *bool   `json:"primary,omitempty"`
	Rank        *int    `json:"rank,omitempty"`
	RelevanceID *string `json:"relevanceId,omitempty"`
}

// ConnectionPut is the body of PUT /node-connections/{id} and PUT /node-resources/{id}.
type ConnectionPut struct {
	Primary     *bool   `json:"primary,omitempty"`
	Rank        *int    `json:"rank,omitempty"`
	RelevanceID *string `json:"relevanceId,omitempty"`
}

type ResourceResourceTypePost struct {
	ResourceID     string `json:"resourceId"`
	ResourceTypeID string `json:"resourceTypeId"`
}

type ResourceFilterPost struct {
	ResourceID  string `json:"resourceId"`
	FilterID    string `json:"filterId"`
	RelevanceID string `json:"relevanceId"`
}

type ResourceFilterPut struct {
	RelevanceID string `json:"relevanceId"`
}

type NodeQuery struct {
	NodeType NodeType
	Language string
	Key      string
	Value    string
}
