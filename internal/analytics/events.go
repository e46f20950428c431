package analytics

import "time"

type EventType string

const (
	EventSearch  EventType = "search"
	EventRebuild EventType = "rebuild"
)

// Event is the envelope published to the analytics topic. Exactly one of
// Search or Rebuild is set, matching Type.
type Event struct {
	Type      EventType     `json:"type"`
	Search    *SearchEvent  `json:"search,omitempty"`
	Rebuild   *RebuildEvent `json:"rebuild,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type SearchEvent struct {
	Query           string   `json:"query"`
	Terms           []string `json:"terms"`
	TotalCandidates int      `json:"total_candidates"`
	Returned        int      `json:"returned"`
	TopScore        int      `json:"top_score"`
	LatencyMs       int64    `json:"latency_ms"`
	CacheHit        bool     `json:"cache_hit"`
	Generation      uint64   `json:"generation"`
	RequestID       string   `json:"request_id,omitempty"`
}

type RebuildEvent struct {
	Source     string `json:"source"`
	Reason     string `json:"reason"`
	Forced     bool   `json:"forced"`
	Generation uint64 `json:"generation"`
	Objects    int    `json:"objects"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func NewSearchEvent(e SearchEvent) Event {
	return Event{Type: EventSearch, Search: &e, Timestamp: time.Now().UTC()}
}

func NewRebuildEvent(e RebuildEvent) Event {
	return Event{Type: EventRebuild, Rebuild: &e, Timestamp: time.Now().UTC()}
}
