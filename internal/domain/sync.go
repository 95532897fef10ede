package domain

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"
)

// SyncStatus is the job status reported by the server
type SyncStatus string

const (
	SyncStatusStarted        SyncStatus = "started"
	SyncStatusAlreadyRunning SyncStatus = "already_running"
	SyncStatusIdle           SyncStatus = "idle"
	SyncStatusInProgress     SyncStatus = "in_progress"
)

// JobState is the two-valued view of SyncStatus used by the poller
type JobState int

const (
	JobIdle JobState = iota
	JobRunning
)

func (s JobState) String() string {
	if s == JobRunning {
		return "running"
	}
	return "idle"
}

// SyncStatusResponse is the payload of /sync/status and /sync/trigger
type SyncStatusResponse struct {
	Status   SyncStatus   `json:"status"`
	LastSync string       `json:"last_sync,omitempty"`
	Details  *SyncDetails `json:"details,omitempty"`
}

// SyncDetails carries the result of the most recent run
type SyncDetails struct {
	Result SyncResult `json:"result,omitempty"`
	Errors string     `json:"errors,omitempty"`
}

// State maps the server status onto idle/running. "started" and
// "already_running" both mean a job is executing.
func (r *SyncStatusResponse) State() JobState {
	switch r.Status {
	case SyncStatusInProgress, SyncStatusStarted, SyncStatusAlreadyRunning:
		return JobRunning
	default:
		return JobIdle
	}
}

// AlreadyRunning reports that a trigger was ignored because a job was in progress
func (r *SyncStatusResponse) AlreadyRunning() bool {
	return r.Status == SyncStatusAlreadyRunning
}

// Result returns the last run's per-replica result, or nil
func (r *SyncStatusResponse) Result() SyncResult {
	if r.Details == nil {
		return nil
	}
	return r.Details.Result
}

var lastSyncLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
}

// LastSyncTime parses LastSync. The server emits either RFC 3339 or naive ISO timestamps.
func (r *SyncStatusResponse) LastSyncTime() (time.Time, bool) {
	if r.LastSync == "" {
		return time.Time{}, false
	}
	for _, layout := range lastSyncLayouts {
		if t, err := time.Parse(layout, r.LastSync); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SyncStats counts what a run did to one replica
type SyncStats struct {
	Added     int `json:"added"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
	Ignored   int `json:"ignored"`
	Errors    int `json:"errors"`

	AddedFiles   []string `json:"added_files,omitempty"`
	UpdatedFiles []string `json:"updated_files,omitempty"`
	DeletedFiles []string `json:"deleted_files,omitempty"`
	IgnoredFiles []string `json:"ignored_files,omitempty"`
	ErrorFiles   []string `json:"error_files,omitempty"`
}

// Changes is added + updated + deleted
func (s SyncStats) Changes() int {
	return s.Added + s.Updated + s.Deleted
}

// HasFileDetails reports whether any per-category file list is present
func (s SyncStats) HasFileDetails() bool {
	return len(s.AddedFiles) > 0 || len(s.UpdatedFiles) > 0 || len(s.DeletedFiles) > 0 ||
		len(s.IgnoredFiles) > 0 || len(s.ErrorFiles) > 0
}

// OutcomeKind discriminates ReplicaOutcome
type OutcomeKind int

const (
	OutcomeStats OutcomeKind = iota
	OutcomeError
)

// ReplicaOutcome is either the stats of a replica sync or the error that stopped it.
// Exactly one of Stats and Err is meaningful, selected by Kind.
type ReplicaOutcome struct {
	Kind  OutcomeKind
	Stats SyncStats
	Err   string
}

// StatsOutcome builds a successful outcome
func StatsOutcome(s SyncStats) ReplicaOutcome {
	return ReplicaOutcome{Kind: OutcomeStats, Stats: s}
}

// ErrorOutcome builds a failed outcome
func ErrorOutcome(msg string) ReplicaOutcome {
	return ReplicaOutcome{Kind: OutcomeError, Err: msg}
}

func (o *ReplicaOutcome) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("replica outcome: %w", err)
	}

	if raw, ok := fields["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("replica outcome error field: %w", err)
		}
		*o = ErrorOutcome(msg)
		return nil
	}

	var stats SyncStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return fmt.Errorf("replica outcome stats: %w", err)
	}
	*o = StatsOutcome(stats)
	return nil
}

func (o ReplicaOutcome) MarshalJSON() ([]byte, error) {
	if o.Kind == OutcomeError {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{o.Err})
	}
	return json.Marshal(o.Stats)
}

// SyncResult maps a replica path to its outcome
type SyncResult map[string]ReplicaOutcome

// Replicas returns the replica keys in stable order
func (r SyncResult) Replicas() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasErrors reports whether any replica failed
func (r SyncResult) HasErrors() bool {
	for _, o := range r {
		if o.Kind == OutcomeError {
			return true
		}
	}
	return false
}

// ResultSummary aggregates a SyncResult across replicas
type ResultSummary struct {
	Added   int
	Updated int
	Deleted int
	Failed  int // replicas that returned an error
}

// Summary totals the stats of all successful replicas and counts failed ones
func (r SyncResult) Summary() ResultSummary {
	var s ResultSummary
	for _, o := range r {
		if o.Kind == OutcomeError {
			s.Failed++
			continue
		}
		s.Added += o.Stats.Added
		s.Updated += o.Stats.Updated
		s.Deleted += o.Stats.Deleted
	}
	return s
}

func (s ResultSummary) String() string {
	if s.Added == 0 && s.Updated == 0 && s.Deleted == 0 && s.Failed == 0 {
		return "no changes"
	}
	out := fmt.Sprintf("%d added, %d updated, %d deleted", s.Added, s.Updated, s.Deleted)
	if s.Failed > 0 {
		out += fmt.Sprintf(", %d failed", s.Failed)
	}
	return out
}

// ReplicaDisplayName returns the last path element of a replica key
func ReplicaDisplayName(replica string) string {
	name := path.Base(replica)
	if name == "." || name == "/" {
		return replica
	}
	return name
}

// HistoryEntry is one recorded sync run
type HistoryEntry struct {
	ID        int64      `json:"id"`
	Timestamp string     `json:"timestamp"`
	DryRun    bool       `json:"dry_run"`
	Status    string     `json:"status"`
	Duration  float64    `json:"duration"` // seconds
	Result    SyncResult `json:"result,omitempty"`
	Errors    string     `json:"errors,omitempty"`
}

// HistoryStats aggregates the recorded runs
type HistoryStats struct {
	TotalSyncs      int     `json:"total_syncs"`
	SuccessfulSyncs int     `json:"successful_syncs"`
	FailedSyncs     int     `json:"failed_syncs"`
	AverageDuration float64 `json:"average_duration"`
}

// HistorySnapshot is history and stats loaded together
type HistorySnapshot struct {
	Entries  []HistoryEntry
	Stats    HistoryStats
	LoadedAt time.Time
}
