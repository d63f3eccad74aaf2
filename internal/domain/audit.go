package domain

import "time"

type Operation string

const (
	OperationSync       Operation = "sync"
	OperationReorder    Operation = "reorder"
	OperationConnect    Operation = "connect"
	OperationReconnect  Operation = "reconnect"
	OperationDisconnect Operation = "disconnect"
	OperationCreateNode Operation = "create-node"
	OperationUpdateNode Operation = "update-node"
	OperationDeleteNode Operation = "delete-node"
)

// AuditEntry records one settled mutation, successful or not.
type AuditEntry struct {
	ID        uint            `json:"id"`
	Operation Operation       `json:"operation"`
	Kind      AssociationKind `json:"kind,omitempty"`
	EntityID  string          `json:"entityId"`
	Version   Version         `json:"version"`
	Created   []string        `json:"created,omitempty"`
	Updated   []string        `json:"updated,omitempty"`
	Deleted   []string        `json:"deleted,omitempty"`
	Failed    []string        `json:"failed,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func associationIDs(items []Association) []string {
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.ID)
	}
	return ids
}

// AuditEntry summarizes the report for the audit log.
func (r *SyncReport) AuditEntry() AuditEntry {
	entry := AuditEntry{
		Operation: OperationSync,
		Kind:      r.Kind,
		EntityID:  r.PrimaryID,
		Version:   r.Version,
		Created:   associationIDs(r.Created),
		Updated:   associationIDs(r.Updated),
		Deleted:   associationIDs(r.Deleted),
	}
	for _, f := range r.Failures {
		entry.Failed = append(entry.Failed, f.ID)
	}
	if err := r.Err(); err != nil {
		entry.Error = err.Error()
	}
	return entry
}
