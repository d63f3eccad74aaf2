package taxonomy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx answer from the taxonomy service.
type APIError struct {
	Status   int             `json:"status"`
	Messages []string        `json:"messages,omitempty"`
	JSON     json.RawMessage `json:"json,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("taxonomy api error (status %d)", e.Status)
	}
	return fmt.Sprintf("taxonomy api error (status %d): %s", e.Status, strings.Join(e.Messages, "; "))
}

// ParseAPIError builds an APIError from a response body.
//
// The body may carry `messages` as a list, a single `message`, or neither; anything
// that is not JSON is kept as a single message.
func ParseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	if len(body) == 0 {
		return apiErr
	}

	if !json.Valid(body) {
		apiErr.Messages = []string{strings.TrimSpace(string(body))}
		return apiErr
	}
	apiErr.JSON = json.RawMessage(body)

	var withList struct {
		Messages []json.RawMessage `json:"messages"`
		Message  *string           `json:"message"`
	}
	if err := json.Unmarshal(body, &withList); err != nil {
		return apiErr
	}

	for _, raw := range withList.Messages {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			apiErr.Messages = append(apiErr.Messages, text)
			continue
		}
		var field struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &field); err == nil && field.Message != "" {
			if field.Field != "" {
				apiErr.Messages = append(apiErr.Messages, field.Field+": "+field.Message)
			} else {
				apiErr.Messages = append(apiErr.Messages, field.Message)
			}
		}
	}
	if len(apiErr.Messages) == 0 && withList.Message != nil {
		apiErr.Messages = []string{*withList.Message}
	}
	return apiErr
}
