package jobs

import "encoding/json"

// DetailRecord is the display-ready view of a single job.
//
// A record is built once from a payload snapshot and never modified
// afterwards; computed values are exposed through accessor methods.
// Every timestamp is paired with a *Formatted rendering.
type DetailRecord struct {
	ID         *int64           `json:"id"`
	JobType    *JobType         `json:"job_type"`
	JobTypeRev *JobTypeRev      `json:"job_type_rev"`
	Event      *Event           `json:"event"`
	Error      *ErrorDescriptor `json:"error"`
	Status     string           `json:"status,omitempty"`

	Priority        *int     `json:"priority"`
	NumExes         *int     `json:"num_exes"`
	Timeout         *int     `json:"timeout"`
	MaxTries        *int     `json:"max_tries"`
	CPUsRequired    *float64 `json:"cpus_required"`
	MemRequired     *float64 `json:"mem_required"`
	DiskInRequired  *float64 `json:"disk_in_required"`
	DiskOutRequired *float64 `json:"disk_out_required"`

	MemRequiredFormatted     string `json:"mem_required_formatted,omitempty"`
	DiskInRequiredFormatted  string `json:"disk_in_required_formatted,omitempty"`
	DiskOutRequiredFormatted string `json:"disk_out_required_formatted,omitempty"`

	Created                   string `json:"created,omitempty"`
	CreatedFormatted          string `json:"created_formatted,omitempty"`
	Queued                    string `json:"queued,omitempty"`
	QueuedFormatted           string `json:"queued_formatted,omitempty"`
	Started                   string `json:"started,omitempty"`
	StartedFormatted          string `json:"started_formatted,omitempty"`
	Ended                     string `json:"ended,omitempty"`
	EndedFormatted            string `json:"ended_formatted,omitempty"`
	LastStatusChange          string `json:"last_status_change,omitempty"`
	LastStatusChangeFormatted string `json:"last_status_change_formatted,omitempty"`
	LastModified              string `json:"last_modified,omitempty"`
	LastModifiedFormatted     string `json:"last_modified_formatted,omitempty"`

	Data    *DataEnvelope    `json:"data"`
	Results *ResultsEnvelope `json:"results"`
	Recipes []Recipe         `json:"recipes"`
	JobExes []Execution      `json:"job_exes"`
	Inputs  json.RawMessage  `json:"inputs,omitempty"`
	Outputs json.RawMessage  `json:"outputs,omitempty"`

	IsSuperseded        *bool    `json:"is_superseded"`
	RootSupersededJob   *JobLink `json:"root_superseded_job"`
	SupersededJob       *JobLink `json:"superseded_job"`
	SupersededByJob     *JobLink `json:"superseded_by_job"`
	Superseded          string   `json:"superseded,omitempty"`
	SupersededFormatted string   `json:"superseded_formatted,omitempty"`
}

// JobType identifies the kind of work a job performs.
type JobType struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Category      string `json:"category,omitempty"`
	AuthorName    string `json:"author_name,omitempty"`
	IconCode      string `json:"icon_code,omitempty"`
	IsSystem      bool   `json:"is_system"`
	IsLongRunning bool   `json:"is_long_running"`
	IsActive      bool   `json:"is_active"`
	IsOperational bool   `json:"is_operational"`
	IsPaused      bool   `json:"is_paused"`
}

// Label is the title when set, otherwise the name, followed by the version.
func (t *JobType) Label() string {
	if t == nil {
		return ""
	}
	name := t.Title
	if name == "" {
		name = t.Name
	}
	if t.Version == "" {
		return name
	}
	return name + " " + t.Version
}

// JobTypeRev is the job-type revision the job was created against.
type JobTypeRev struct {
	ID               int64  `json:"id,omitempty"`
	RevisionNum      int    `json:"revision_num"`
	Created          string `json:"created,omitempty"`
	CreatedFormatted string `json:"created_formatted,omitempty"`
}

// Event is the trigger event that created the job.
type Event struct {
	ID                int64           `json:"id"`
	Type              string          `json:"type"`
	Rule              *TriggerRule    `json:"rule"`
	Occurred          string          `json:"occurred,omitempty"`
	OccurredFormatted string          `json:"occurred_formatted,omitempty"`
	Description       json.RawMessage `json:"description,omitempty"`
}

// TriggerRule is the rule that fired an event.
type TriggerRule struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// ErrorDescriptor describes why a job or execution failed.
type ErrorDescriptor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// DataEnvelope is the job's input data section.
type DataEnvelope struct {
	Version    string        `json:"version"`
	InputData  []InputDatum  `json:"input_data"`
	OutputData []OutputDatum `json:"output_data"`
}

// ResultsEnvelope is the job's results section.
type ResultsEnvelope struct {
	Version    string        `json:"version"`
	OutputData []OutputDatum `json:"output_data"`
}

// InputDatum is one named job input: a property value or file references.
type InputDatum struct {
	Name    string          `json:"name"`
	Value   json.RawMessage `json:"value,omitempty"`
	FileID  *int64          `json:"file_id,omitempty"`
	FileIDs []int64         `json:"file_ids,omitempty"`
}

// OutputDatum is one named job output.
type OutputDatum struct {
	Name        string  `json:"name"`
	WorkspaceID *int64  `json:"workspace_id,omitempty"`
	FileID      *int64  `json:"file_id,omitempty"`
	FileIDs     []int64 `json:"file_ids,omitempty"`
}

// Recipe is a recipe the job participates in.
type Recipe struct {
	ID                    int64          `json:"id"`
	RecipeType            *RecipeTypeRef `json:"recipe_type"`
	IsSuperseded          bool           `json:"is_superseded"`
	Created               string         `json:"created,omitempty"`
	CreatedFormatted      string         `json:"created_formatted,omitempty"`
	Completed             string         `json:"completed,omitempty"`
	CompletedFormatted    string         `json:"completed_formatted,omitempty"`
	LastModified          string         `json:"last_modified,omitempty"`
	LastModifiedFormatted string         `json:"last_modified_formatted,omitempty"`
}

// RecipeTypeRef names a recipe type.
type RecipeTypeRef struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Title   string `json:"title,omitempty"`
}

// Execution is one run attempt of the job.
type Execution struct {
	ID                    int64            `json:"id"`
	Status                string           `json:"status"`
	ExeNum                int              `json:"exe_num,omitempty"`
	Node                  *NodeRef         `json:"node"`
	Error                 *ErrorDescriptor `json:"error"`
	Timeout               *int             `json:"timeout"`
	Created               string           `json:"created,omitempty"`
	CreatedFormatted      string           `json:"created_formatted,omitempty"`
	Queued                string           `json:"queued,omitempty"`
	QueuedFormatted       string           `json:"queued_formatted,omitempty"`
	Started               string           `json:"started,omitempty"`
	StartedFormatted      string           `json:"started_formatted,omitempty"`
	Ended                 string           `json:"ended,omitempty"`
	EndedFormatted        string           `json:"ended_formatted,omitempty"`
	LastModified          string           `json:"last_modified,omitempty"`
	LastModifiedFormatted string           `json:"last_modified_formatted,omitempty"`
}

// NodeRef is the cluster node an execution ran on.
type NodeRef struct {
	ID       int64  `json:"id"`
	Hostname string `json:"hostname"`
}

// JobLink points at another job in a supersession chain.
type JobLink struct {
	ID      int64    `json:"id"`
	Status  string   `json:"status,omitempty"`
	JobType *JobType `json:"job_type,omitempty"`
}
