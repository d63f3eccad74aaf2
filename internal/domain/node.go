package domain

// MetadataUpdate changes node metadata. Nil fields are left as they are.
//
// Features replace customFields as a whole; callers merge them onto the current
// features first.
type MetadataUpdate struct {
	GrepCodes *[]string     `json:"grepCodes,omitempty"`
	Visible   *bool         `json:"visible,omitempty"`
	Features  *NodeFeatures `json:"features,omitempty"`
}

func (u MetadataUpdate) IsEmpty() bool {
	return u.GrepCodes == nil && u.Visible == nil && u.Features == nil
}
