// Package jobs reshapes Scale job-detail payloads into display records.
package jobs

import (
	"bytes"

	"scale-dashboard/internal/timefmt"
)

// DetailBuilder builds DetailRecords from job-detail payloads.
type DetailBuilder struct {
	format     *timefmt.Formatter
	recipes    RecipeBuilder
	executions ExecutionBuilder
}

var _ Transformer[Payload, DetailRecord] = (*DetailBuilder)(nil)

// NewDetailBuilder creates a builder rendering timestamps through f.
// A nil formatter selects the default pattern.
func NewDetailBuilder(f *timefmt.Formatter) *DetailBuilder {
	if f == nil {
		f = timefmt.NewFormatter("")
	}
	return &DetailBuilder{
		format:     f,
		recipes:    NewRecipeBuilder(f),
		executions: NewExecutionBuilder(f),
	}
}

// BuildOne maps a payload into a record.
//
// A nil payload yields an empty record with every field unset, which
// templates render before data arrives.
func (b *DetailBuilder) BuildOne(p *Payload) *DetailRecord {
	if p == nil {
		return &DetailRecord{}
	}

	rec := &DetailRecord{
		ID:         p.ID,
		JobType:    decodeLenient[JobType](p.JobType),
		JobTypeRev: b.buildJobTypeRev(p.JobTypeRev),
		Event:      b.buildEvent(p.Event),
		Error:      decodeLenient[ErrorDescriptor](p.Error),
		Status:     deref(p.Status),

		Priority:        p.Priority,
		NumExes:         p.NumExes,
		Timeout:         p.Timeout,
		MaxTries:        p.MaxTries,
		CPUsRequired:    p.CPUsRequired,
		MemRequired:     p.MemRequired,
		DiskInRequired:  p.DiskInRequired,
		DiskOutRequired: p.DiskOutRequired,

		MemRequiredFormatted:     timefmt.SizeFromMiB(p.MemRequired),
		DiskInRequiredFormatted:  timefmt.SizeFromMiB(p.DiskInRequired),
		DiskOutRequiredFormatted: timefmt.SizeFromMiB(p.DiskOutRequired),

		Created:                   deref(p.Created),
		CreatedFormatted:          b.format.FormatPtr(p.Created),
		Queued:                    deref(p.Queued),
		QueuedFormatted:           b.format.FormatPtr(p.Queued),
		Started:                   deref(p.Started),
		StartedFormatted:          b.format.FormatPtr(p.Started),
		Ended:                     deref(p.Ended),
		EndedFormatted:            b.format.FormatPtr(p.Ended),
		LastStatusChange:          deref(p.LastStatusChange),
		LastStatusChangeFormatted: b.format.FormatPtr(p.LastStatusChange),
		LastModified:              deref(p.LastModified),
		LastModifiedFormatted:     b.format.FormatPtr(p.LastModified),

		Data:    buildData(p.Data),
		Results: buildResults(p.Results),
		Inputs:  bytes.Clone(p.Inputs),
		Outputs: bytes.Clone(p.Outputs),

		IsSuperseded:        p.IsSuperseded,
		RootSupersededJob:   buildJobLink(p.RootSupersededJob),
		SupersededJob:       buildJobLink(p.SupersededJob),
		SupersededByJob:     buildJobLink(p.SupersededByJob),
		Superseded:          deref(p.Superseded),
		SupersededFormatted: b.format.FormatPtr(p.Superseded),
	}

	if recipes := decodeElements[RecipePayload](p.Recipes); recipes != nil {
		rec.Recipes = values(b.recipes.BuildMany(recipes))
	}
	if exes := decodeElements[ExecutionPayload](p.JobExes); exes != nil {
		rec.JobExes = values(b.executions.BuildMany(exes))
	}
	return rec
}

// BuildMany maps every non-nil payload.
func (b *DetailBuilder) BuildMany(ps []*Payload) []*DetailRecord {
	return buildMany(ps, b.BuildOne)
}

// Degraded reports whether a present nested section of p could not be
// mapped and was dropped from rec.
func Degraded(p *Payload, rec *DetailRecord) bool {
	if p == nil || rec == nil {
		return false
	}
	return (p.JobType != nil && rec.JobType == nil) ||
		(p.Event != nil && rec.Event == nil) ||
		(p.Data != nil && rec.Data == nil) ||
		(p.Results != nil && rec.Results == nil) ||
		(p.Recipes != nil && rec.Recipes == nil) ||
		(p.JobExes != nil && rec.JobExes == nil)
}
