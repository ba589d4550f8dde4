package backend

import (
	"encoding/json"
	"fmt"
)

// Connection is the result of a connectivity probe. It is recomputed in full
// on every credential or URL change, never incrementally mutated.
type Connection struct {
	Connected     bool      `json:"connected"`
	UserInfo      *UserInfo `json:"userInfo,omitempty"`
	StatusMessage string    `json:"statusMessage"`
}

// UserInfo describes the authenticated backend account.
type UserInfo struct {
	Email        string `json:"email"`
	Photo        string `json:"photo"`
	IsActive     bool   `json:"isActive"`
	HasDocuments bool   `json:"hasDocuments"`
}

// ModelOption is one selectable chat model. Uniqueness is by ID.
type ModelOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Preference is the server's remembered chat-model choice. A nil
// SelectedModelID means the server holds no preference and the backend
// default applies.
type Preference struct {
	SelectedModelID *string
}

// UnmarshalJSON accepts the id as a JSON string, number, or null. Older
// backends persisted numeric ids; both forms normalize to the string form
// used for matching against the model list.
func (p *Preference) UnmarshalJSON(data []byte) error {
	var raw struct {
		SelectedModelID json.RawMessage `json:"selectedModelId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.SelectedModelID = nil
	if len(raw.SelectedModelID) == 0 || string(raw.SelectedModelID) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw.SelectedModelID, &s); err == nil {
		p.SelectedModelID = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw.SelectedModelID, &n); err == nil {
		id := n.String()
		p.SelectedModelID = &id
		return nil
	}
	return fmt.Errorf("unsupported selectedModelId value %s", raw.SelectedModelID)
}

// MarshalJSON writes the wire form consumed by the preference endpoint.
func (p Preference) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SelectedModelID *string `json:"selectedModelId"`
	}{SelectedModelID: p.SelectedModelID})
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Code, e.Body)
}
