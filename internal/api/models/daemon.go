package models

// CounterTotals mirrors the process-wide entry counters.
type CounterTotals struct {
	Submitted   uint64 `json:"submitted" example:"1200" doc:"Entries accepted by submit"`
	Filtered    uint64 `json:"filtered" example:"40" doc:"Entries dropped by a severity filter"`
	Written     uint64 `json:"written" example:"1150" doc:"Entries handed to a destination"`
	Discarded   uint64 `json:"discarded" example:"0" doc:"Entries lost with a retired destination"`
	WriteErrors uint64 `json:"write_errors" example:"0" doc:"Failed destination writes and syncs"`
	Malformed   uint64 `json:"malformed" example:"2" doc:"Undecodable ingest payloads"`
}

// StatusData describes the running daemon.
type StatusData struct {
	State         string        `json:"state" example:"RUNNING" doc:"Lifecycle state"`
	UptimeSeconds float64       `json:"uptime_seconds" example:"3600.5" doc:"Seconds since the daemon entered RUNNING"`
	Routes        int           `json:"routes" example:"4" doc:"Routes in the active registry, default included"`
	Fallbacks     int           `json:"fallbacks" example:"0" doc:"Routes redirected to the default log"`
	Pending       int           `json:"pending" example:"12" doc:"Entries queued and not yet dispatched"`
	Backlog       int           `json:"backlog" example:"0" doc:"Entries held by destinations awaiting retry"`
	Totals        CounterTotals `json:"totals" doc:"Entry counters since start"`
}

type StatusResponse struct {
	Body StatusData
}

// RouteData describes one service route.
type RouteData struct {
	Service     string   `json:"service" example:"auth" doc:"Service name"`
	Levels      []string `json:"levels" example:"[\"error\",\"warn\"]" doc:"Enabled severities"`
	Type        string   `json:"type" example:"file" doc:"Sink type"`
	Target      string   `json:"target" example:"/var/log/auth.log" doc:"Destination target"`
	Destination string   `json:"destination" example:"/var/log/auth.log" doc:"Name of the open destination"`
	Options     string   `json:"options,omitempty" example:"append" doc:"Sink options"`
	Cull        any      `json:"cull,omitempty" doc:"Retention setting, stored but not applied"`
	Fallback    bool     `json:"fallback" example:"false" doc:"Whether the route fell back to the default log"`
}

type RouteListData struct {
	Routes []RouteData `json:"routes" doc:"Routes sorted by service"`
	Count  int         `json:"count" example:"4" doc:"Number of routes"`
}

type RouteListResponse struct {
	Body RouteListData
}

// ReloadData reports whether a reload request was queued.
type ReloadData struct {
	Accepted bool   `json:"accepted" example:"true" doc:"False when a reload is already pending or the daemon is stopping"`
	State    string `json:"state" example:"RUNNING" doc:"Lifecycle state at request time"`
}

type ReloadResponse struct {
	Body ReloadData
}
