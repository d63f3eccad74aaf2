package domain

import "strconv"

// customFields keys understood by the editor
const (
	customFieldTopicResources     = "topic-resources"
	customFieldSubjectCategory    = "subjectCategory"
	customFieldSubjectType        = "subjectType"
	customFieldLanguage           = "language"
	customFieldExplanationSubject = "forklaringsfag"
)

type ResourceGrouping string

const (
	GroupingGrouped   ResourceGrouping = "grouped"
	GroupingUngrouped ResourceGrouping = "ungrouped"
)

func (g ResourceGrouping) IsValid() bool {
	return g == GroupingGrouped || g == GroupingUngrouped
}

// NodeFeatures is the typed view of a node's metadata.customFields.
//
// A nil field is absent from the map. Keys the editor does not know are kept in Extra
// and written back untouched.
type NodeFeatures struct {
	TopicResources     *ResourceGrouping `json:"topicResources,omitempty"`
	SubjectCategory    *string           `json:"subjectCategory,omitempty"`
	SubjectType        *string           `json:"subjectType,omitempty"`
	Language           *string           `json:"language,omitempty"`
	ExplanationSubject *bool             `json:"explanationSubject,omitempty"`
	Extra              map[string]string `json:"extra,omitempty"`
}

// Grouped reports whether resources under the node are shown grouped by type.
// Nodes without the field are grouped.
func (f NodeFeatures) Grouped() bool {
	return f.TopicResources == nil || *f.TopicResources != GroupingUngrouped
}

// DecodeFeatures reads customFields. Values that do not parse stay in Extra under their key.
func DecodeFeatures(fields map[string]string) NodeFeatures {
	var f NodeFeatures
	for key, value := range fields {
		switch key {
		case customFieldTopicResources:
			if g := ResourceGrouping(value); g.IsValid() {
				f.TopicResources = &g
				continue
			}
		case customFieldSubjectCategory:
			v := value
			f.SubjectCategory = &v
			continue
		case customFieldSubjectType:
			v := value
			f.SubjectType = &v
			continue
		case customFieldLanguage:
			v := value
			f.Language = &v
			continue
		case customFieldExplanationSubject:
			if b, err := strconv.ParseBool(value); err == nil {
				f.ExplanationSubject = &b
				continue
			}
		}
		if f.Extra == nil {
			f.Extra = map[string]string{}
		}
		f.Extra[key] = value
	}
	return f
}

// Encode writes the features back into the flat map the taxonomy service stores.
func (f NodeFeatures) Encode() map[string]string {
	fields := make(map[string]string, len(f.Extra)+5)
	for k, v := range f.Extra {
		fields[k] = v
	}
	if f.TopicResources != nil {
		fields[customFieldTopicResources] = string(*f.TopicResources)
	}
	if f.SubjectCategory != nil {
		fields[customFieldSubjectCategory] = *f.SubjectCategory
	}
	if f.SubjectType != nil {
		fields[customFieldSubjectType] = *f.SubjectType
	}
	if f.Language != nil {
		fields[customFieldLanguage] = *f.Language
	}
	if f.ExplanationSubject != nil {
		fields[customFieldExplanationSubject] = strconv.FormatBool(*f.ExplanationSubject)
	}
	return fields
}

// Merge overlays every field set in patch onto f.
func (f NodeFeatures) Merge(patch NodeFeatures) NodeFeatures {
	merged := f
	if patch.TopicResources != nil {
		merged.TopicResources = patch.TopicResources
	}
	if patch.SubjectCategory != nil {
		merged.SubjectCategory = patch.SubjectCategory
	}
	if patch.SubjectType != nil {
		merged.SubjectType = patch.SubjectType
	}
	if patch.Language != nil {
		merged.Language = patch.Language
	}
	if patch.ExplanationSubject != nil {
		merged.ExplanationSubject = patch.ExplanationSubject
	}
	if len(patch.Extra) > 0 {
		extra := make(map[string]string, len(f.Extra)+len(patch.Extra))
		for k, v := range f.Extra {
			extra[k] = v
		}
		for k, v := range patch.Extra {
			extra[k] = v
		}
		merged.Extra = extra
	}
	return merged
}
