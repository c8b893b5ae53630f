package session

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of a submitted URL. The integer values are
// what lands in the session file, so they must stay stable across versions.
type Status int

const (
	StatusQueued    Status = 0
	StatusFinished  Status = 1
	StatusError     Status = 2
	StatusInvalid   Status = 3
	StatusDuplicate Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	case StatusInvalid:
		return "invalid"
	case StatusDuplicate:
		return "duplicate"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Header is one response header name/value pair. It serializes as a
// two-element JSON array so the stored form is an ordered list of pairs.
type Header struct {
	Name  string
	Value string
}

func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{h.Name, h.Value})
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	h.Name, h.Value = pair[0], pair[1]
	return nil
}

// Screen is one stored capture result, keyed by the originally requested
// URL. Rows are immutable once written; a retried URL that succeeds inserts
// a fresh row and a second insert for the same URL is silently ignored.
type Screen struct {
	URL      string
	URLFinal string
	Title    string
	Server   string
	Headers  []Header
	// HTTP response status, -1 when the service could not determine it.
	Status int
	// File name of the saved image. The bytes live on the filesystem; the
	// store only ever references them by name.
	Image string
}
