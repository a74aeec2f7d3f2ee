package jobs

import (
	"bytes"
	"encoding/json"
	"slices"

	"scale-dashboard/internal/timefmt"
)

// RecipePayload is one element of a job's "recipes" section.
type RecipePayload struct {
	ID           int64          `json:"id"`
	RecipeType   *RecipeTypeRef `json:"recipe_type"`
	IsSuperseded bool           `json:"is_superseded"`
	Created      *string        `json:"created"`
	Completed    *string        `json:"completed"`
	LastModified *string        `json:"last_modified"`
}

// ExecutionPayload is one element of a job's "job_exes" section.
type ExecutionPayload struct {
	ID           int64           `json:"id"`
	Status       string          `json:"status"`
	ExeNum       int             `json:"exe_num"`
	Node         *NodeRef        `json:"node"`
	Error        json.RawMessage `json:"error"`
	Timeout      *int            `json:"timeout"`
	Created      *string         `json:"created"`
	Queued       *string         `json:"queued"`
	Started      *string         `json:"started"`
	Ended        *string         `json:"ended"`
	LastModified *string         `json:"last_modified"`
}

/* ---------------- recipes ---------------- */

// RecipeBuilder maps recipe payloads and orders them newest first.
type RecipeBuilder struct {
	format *timefmt.Formatter
}

var _ Transformer[RecipePayload, Recipe] = RecipeBuilder{}

// NewRecipeBuilder creates a recipe sub-transformer.
func NewRecipeBuilder(f *timefmt.Formatter) RecipeBuilder {
	return RecipeBuilder{format: f}
}

func (b RecipeBuilder) BuildOne(p *RecipePayload) *Recipe {
	if p == nil {
		return &Recipe{}
	}
	return &Recipe{
		ID:                    p.ID,
		RecipeType:            p.RecipeType,
		IsSuperseded:          p.IsSuperseded,
		Created:               deref(p.Created),
		CreatedFormatted:      b.format.FormatPtr(p.Created),
		Completed:             deref(p.Completed),
		CompletedFormatted:    b.format.FormatPtr(p.Completed),
		LastModified:          deref(p.LastModified),
		LastModifiedFormatted: b.format.FormatPtr(p.LastModified),
	}
}

// BuildMany maps every recipe, sorts ascending by creation time and
// reverses the result. Recipes with an unreadable creation time sort as
// oldest. Order among equal creation times is unspecified.
func (b RecipeBuilder) BuildMany(ps []*RecipePayload) []*Recipe {
	out := buildMany(ps, b.BuildOne)
	slices.SortFunc(out, func(x, y *Recipe) int {
		tx, _ := timefmt.Parse(x.Created)
		ty, _ := timefmt.Parse(y.Created)
		return tx.Compare(ty)
	})
	slices.Reverse(out)
	return out
}

/* ---------------- executions ---------------- */

// ExecutionBuilder maps execution attempts, keeping source order.
type ExecutionBuilder struct {
	format *timefmt.Formatter
}

var _ Transformer[ExecutionPayload, Execution] = ExecutionBuilder{}

// NewExecutionBuilder creates an execution sub-transformer.
func NewExecutionBuilder(f *timefmt.Formatter) ExecutionBuilder {
	return ExecutionBuilder{format: f}
}

func (b ExecutionBuilder) BuildOne(p *ExecutionPayload) *Execution {
	if p == nil {
		return &Execution{}
	}
	return &Execution{
		ID:                    p.ID,
		Status:                p.Status,
		ExeNum:                p.ExeNum,
		Node:                  p.Node,
		Error:                 decodeLenient[ErrorDescriptor](p.Error),
		Timeout:               p.Timeout,
		Created:               deref(p.Created),
		CreatedFormatted:      b.format.FormatPtr(p.Created),
		Queued:                deref(p.Queued),
		QueuedFormatted:       b.format.FormatPtr(p.Queued),
		Started:               deref(p.Started),
		StartedFormatted:      b.format.FormatPtr(p.Started),
		Ended:                 deref(p.Ended),
		EndedFormatted:        b.format.FormatPtr(p.Ended),
		LastModified:          deref(p.LastModified),
		LastModifiedFormatted: b.format.FormatPtr(p.LastModified),
	}
}

func (b ExecutionBuilder) BuildMany(ps []*ExecutionPayload) []*Execution {
	return buildMany(ps, b.BuildOne)
}

/* ---------------- data and results ---------------- */

type envelopePayload struct {
	Version    json.RawMessage `json:"version"`
	InputData  json.RawMessage `json:"input_data"`
	OutputData json.RawMessage `json:"output_data"`
}

func buildData(data json.RawMessage) *DataEnvelope {
	env := decodeLenient[envelopePayload](data)
	if env == nil {
		return nil
	}
	return &DataEnvelope{
		Version:    versionTag(env.Version),
		InputData:  buildInputData(env.InputData),
		OutputData: buildOutputData(env.OutputData),
	}
}

func buildResults(data json.RawMessage) *ResultsEnvelope {
	env := decodeLenient[envelopePayload](data)
	if env == nil {
		return nil
	}
	return &ResultsEnvelope{
		Version:    versionTag(env.Version),
		OutputData: buildOutputData(env.OutputData),
	}
}

func buildInputData(data json.RawMessage) []InputDatum {
	items := decodeElements[InputDatum](data)
	if items == nil {
		return nil
	}
	out := make([]InputDatum, 0, len(items))
	for _, item := range items {
		if item == nil || item.Name == "" {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func buildOutputData(data json.RawMessage) []OutputDatum {
	items := decodeElements[OutputDatum](data)
	if items == nil {
		return nil
	}
	out := make([]OutputDatum, 0, len(items))
	for _, item := range items {
		if item == nil || item.Name == "" {
			continue
		}
		out = append(out, *item)
	}
	return out
}

// versionTag copies a version verbatim: strings unquoted, anything else as
// its JSON text.
func versionTag(data json.RawMessage) string {
	if isNull(data) {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(data))
}

/* ---------------- references ---------------- */

type jobTypeRevPayload struct {
	ID          int64   `json:"id"`
	RevisionNum int     `json:"revision_num"`
	Created     *string `json:"created"`
}

func (b *DetailBuilder) buildJobTypeRev(data json.RawMessage) *JobTypeRev {
	if num := decodeLenient[int](data); num != nil {
		return &JobTypeRev{RevisionNum: *num}
	}
	rev := decodeLenient[jobTypeRevPayload](data)
	if rev == nil {
		return nil
	}
	return &JobTypeRev{
		ID:               rev.ID,
		RevisionNum:      rev.RevisionNum,
		Created:          deref(rev.Created),
		CreatedFormatted: b.format.FormatPtr(rev.Created),
	}
}

type eventPayload struct {
	ID          int64           `json:"id"`
	Type        string          `json:"type"`
	Rule        json.RawMessage `json:"rule"`
	Occurred    *string         `json:"occurred"`
	Description json.RawMessage `json:"description"`
}

func (b *DetailBuilder) buildEvent(data json.RawMessage) *Event {
	ev := decodeLenient[eventPayload](data)
	if ev == nil {
		return nil
	}
	var description json.RawMessage
	if !isNull(ev.Description) {
		description = ev.Description
	}
	return &Event{
		ID:                ev.ID,
		Type:              ev.Type,
		Rule:              decodeLenient[TriggerRule](ev.Rule),
		Occurred:          deref(ev.Occurred),
		OccurredFormatted: b.format.FormatPtr(ev.Occurred),
		Description:       description,
	}
}

type jobLinkPayload struct {
	ID      int64           `json:"id"`
	Status  string          `json:"status"`
	JobType json.RawMessage `json:"job_type"`
}

// buildJobLink accepts either a bare job id or a job object.
func buildJobLink(data json.RawMessage) *JobLink {
	if id := decodeLenient[int64](data); id != nil {
		return &JobLink{ID: *id}
	}
	link := decodeLenient[jobLinkPayload](data)
	if link == nil {
		return nil
	}
	return &JobLink{
		ID:      link.ID,
		Status:  link.Status,
		JobType: decodeLenient[JobType](link.JobType),
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
