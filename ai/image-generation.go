package ai

import (
	"encoding/json"
)

// Job statuses reported by the provider; only DONE and FAIL are terminal
const (
	StatusInitial    = "INITIAL"
	StatusProcessing = "PROCESSING"
	StatusPending    = "PENDING"
	StatusDone       = "DONE"
	StatusFail       = "FAIL"
)

// ModelID accepts both numeric and string ids
type ModelID string

func (m *ModelID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = ModelID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*m = ModelID(n.String())
	return nil
}

// Model is one entry of the models listing
type Model struct {
	ID      ModelID     `json:"id"`
	Name    string      `json:"name"`
	Version json.Number `json:"version"`
	Type    string      `json:"type"`
}

// RunResponse is returned when a job is submitted
type RunResponse struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

// StatusResponse describes the state of a job
type StatusResponse struct {
	UUID             string   `json:"uuid"`
	Status           string   `json:"status"`
	Images           []string `json:"images"`
	ErrorDescription string   `json:"errorDescription"`
	Censored         bool     `json:"censored"`
	Result           *struct {
		Files    []string `json:"files"`
		Censored bool     `json:"censored"`
	} `json:"result"`
}

// Files returns the base64 images from either response layout
func (s *StatusResponse) Files() []string {
	if len(s.Images) > 0 {
		return s.Images
	}
	if s.Result != nil {
		return s.Result.Files
	}
	return nil
}
