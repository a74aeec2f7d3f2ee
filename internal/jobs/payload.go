package jobs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is a job-detail document as returned by the Scale REST API.
//
// Scalars are decoded field by field: a field with an unexpected type is
// left nil instead of failing the whole document. Nested sections stay raw
// and are decoded by their own sub-transformers.
type Payload struct {
	ID         *int64
	JobType    json.RawMessage
	JobTypeRev json.RawMessage
	Event      json.RawMessage
	Error      json.RawMessage
	Status     *string

	Priority        *int
	NumExes         *int
	Timeout         *int
	MaxTries        *int
	CPUsRequired    *float64
	MemRequired     *float64
	DiskInRequired  *float64
	DiskOutRequired *float64

	Created          *string
	Queued           *string
	Started          *string
	Ended            *string
	LastStatusChange *string
	LastModified     *string

	Data    json.RawMessage
	Results json.RawMessage
	Recipes json.RawMessage
	JobExes json.RawMessage
	Inputs  json.RawMessage
	Outputs json.RawMessage

	IsSuperseded      *bool
	RootSupersededJob json.RawMessage
	SupersededJob     json.RawMessage
	SupersededByJob   json.RawMessage
	Superseded        *string
}

// UnmarshalJSON decodes an object leniently. Only a document that is not a
// JSON object at all is rejected.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("job payload is not an object: %w", err)
	}

	*p = Payload{
		ID:         scalar[int64](fields, "id"),
		JobType:    raw(fields, "job_type"),
		JobTypeRev: raw(fields, "job_type_rev"),
		Event:      raw(fields, "event"),
		Error:      raw(fields, "error"),
		Status:     scalar[string](fields, "status"),

		Priority:        scalar[int](fields, "priority"),
		NumExes:         scalar[int](fields, "num_exes"),
		Timeout:         scalar[int](fields, "timeout"),
		MaxTries:        scalar[int](fields, "max_tries"),
		CPUsRequired:    scalar[float64](fields, "cpus_required"),
		MemRequired:     scalar[float64](fields, "mem_required"),
		DiskInRequired:  scalar[float64](fields, "disk_in_required"),
		DiskOutRequired: scalar[float64](fields, "disk_out_required"),

		Created:          scalar[string](fields, "created"),
		Queued:           scalar[string](fields, "queued"),
		Started:          scalar[string](fields, "started"),
		Ended:            scalar[string](fields, "ended"),
		LastStatusChange: scalar[string](fields, "last_status_change"),
		LastModified:     scalar[string](fields, "last_modified"),

		Data:    raw(fields, "data"),
		Results: raw(fields, "results"),
		Recipes: raw(fields, "recipes"),
		JobExes: raw(fields, "job_exes"),
		Inputs:  raw(fields, "inputs"),
		Outputs: raw(fields, "outputs"),

		IsSuperseded:      scalar[bool](fields, "is_superseded"),
		RootSupersededJob: raw(fields, "root_superseded_job"),
		SupersededJob:     raw(fields, "superseded_job"),
		SupersededByJob:   raw(fields, "superseded_by_job"),
		Superseded:        scalar[string](fields, "superseded"),
	}
	return nil
}

// Decode reads a single job-detail document. A JSON null yields a nil payload.
func Decode(data []byte) (*Payload, error) {
	if isNull(data) {
		return nil, nil
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeList reads an array of job-detail documents. Null elements stay nil.
func DecodeList(data []byte) ([]*Payload, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("job payload list is not an array: %w", err)
	}

	out := make([]*Payload, len(items))
	for i, item := range items {
		p, err := Decode(item)
		if err != nil {
			continue
		}
		out[i] = p
	}
	return out, nil
}

func scalar[T any](fields map[string]json.RawMessage, key string) *T {
	data := raw(fields, key)
	if data == nil {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return &v
}

// raw returns a private copy of a field, or nil when the field is absent or null.
func raw(fields map[string]json.RawMessage, key string) json.RawMessage {
	data, ok := fields[key]
	if !ok || isNull(data) {
		return nil
	}
	return bytes.Clone(data)
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeLenient decodes a nested section, returning nil when it is absent
// or does not fit T.
func decodeLenient[T any](data json.RawMessage) *T {
	if isNull(data) {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return &v
}

// decodeElements decodes an array section element by element. Elements that
// do not fit T are left nil; a section that is not an array yields nil.
func decodeElements[T any](data json.RawMessage) []*T {
	if isNull(data) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	out := make([]*T, len(items))
	for i, item := range items {
		out[i] = decodeLenient[T](item)
	}
	return out
}
