package models

// EntryData is one log entry submitted over HTTP.
type EntryData struct {
	Service  string `json:"service" minLength:"1" example:"auth" doc:"Service name"`
	Severity string `json:"severity,omitempty" example:"warn" doc:"Severity, info when omitted"`
	Message  string `json:"message" minLength:"1" example:"token expired" doc:"Log message"`
}

type SubmitEntriesBody struct {
	Entries []EntryData `json:"entries" minItems:"1" maxItems:"10000" doc:"Entries to queue"`
}

type SubmitEntriesRequest struct {
	Body SubmitEntriesBody
}

type SubmitEntriesData struct {
	Accepted int `json:"accepted" example:"2" doc:"Entries queued"`
}

type SubmitEntriesResponse struct {
	Body SubmitEntriesData
}

// Diagnostics models
type DiagnosticsRequest struct {
	Limit int    `query:"limit" default:"100" minimum:"1" maximum:"1000" doc:"Most recent records to return"`
	After uint64 `query:"after" doc:"Only return records with a sequence number above this one"`
}

type DiagnosticsData struct {
	Lines []string `json:"lines" doc:"Formatted diagnostic records, oldest first"`
	Count int      `json:"count" example:"100" doc:"Number of lines"`
	Last  uint64   `json:"last" example:"4711" doc:"Sequence number of the newest line, pass as after to poll"`
}

type DiagnosticsResponse struct {
	Body DiagnosticsData
}
