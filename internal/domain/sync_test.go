package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncStatusResponse_Decode(t *testing.T) {
	payload := `{
		"status": "idle",
		"last_sync": "2024-05-01T10:20:30.123456",
		"details": {
			"result": {
				"/mnt/kobo/library": {"added": 2, "updated": 1, "deleted": 0, "unchanged": 10, "ignored": 0, "errors": 0,
					"added_files": ["a.epub", "b.epub"]},
				"/mnt/nas/books": {"error": "replica not mounted"}
			}
		}
	}`

	var resp SyncStatusResponse
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))

	assert.Equal(t, SyncStatusIdle, resp.Status)
	assert.Equal(t, JobIdle, resp.State())

	ts, ok := resp.LastSyncTime()
	require.True(t, ok)
	assert.Equal(t, 2024, ts.Year())

	result := resp.Result()
	require.Len(t, result, 2)

	kobo := result["/mnt/kobo/library"]
	assert.Equal(t, OutcomeStats, kobo.Kind)
	assert.Equal(t, 2, kobo.Stats.Added)
	assert.Equal(t, 3, kobo.Stats.Changes())
	assert.True(t, kobo.Stats.HasFileDetails())

	nas := result["/mnt/nas/books"]
	assert.Equal(t, OutcomeError, nas.Kind)
	assert.Equal(t, "replica not mounted", nas.Err)

	assert.True(t, result.HasErrors())
	assert.Equal(t, []string{"/mnt/kobo/library", "/mnt/nas/books"}, result.Replicas())
}

func TestReplicaOutcome_StatsWithErrorCountIsNotErrorVariant(t *testing.T) {
	var o ReplicaOutcome
	require.NoError(t, json.Unmarshal([]byte(`{"added":0,"updated":0,"deleted":0,"unchanged":0,"ignored":0,"errors":4}`), &o))

	assert.Equal(t, OutcomeStats, o.Kind)
	assert.Equal(t, 4, o.Stats.Errors)
}

func TestReplicaOutcome_MarshalKeepsShape(t *testing.T) {
	data, err := json.Marshal(ErrorOutcome("boom"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(data))

	var back ReplicaOutcome
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, OutcomeError, back.Kind)
}

func TestSyncStatusResponse_State(t *testing.T) {
	tests := []struct {
		status  SyncStatus
		want    JobState
		already bool
	}{
		{SyncStatusIdle, JobIdle, false},
		{SyncStatusInProgress, JobRunning, false},
		{SyncStatusStarted, JobRunning, false},
		{SyncStatusAlreadyRunning, JobRunning, true},
		{SyncStatus("weird"), JobIdle, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			resp := &SyncStatusResponse{Status: tt.status}
			assert.Equal(t, tt.want, resp.State())
			assert.Equal(t, tt.already, resp.AlreadyRunning())
		})
	}
}

func TestSyncResult_Summary(t *testing.T) {
	result := SyncResult{
		"/a": StatsOutcome(SyncStats{Added: 1, Updated: 2, Deleted: 3}),
		"/b": StatsOutcome(SyncStats{Added: 4}),
		"/c": ErrorOutcome("down"),
	}

	s := result.Summary()
	assert.Equal(t, ResultSummary{Added: 5, Updated: 2, Deleted: 3, Failed: 1}, s)
	assert.Equal(t, "5 added, 2 updated, 3 deleted, 1 failed", s.String())
	assert.Equal(t, "no changes", SyncResult{}.Summary().String())
}

func TestReplicaDisplayName(t *testing.T) {
	assert.Equal(t, "books", ReplicaDisplayName("/mnt/nas/books"))
	assert.Equal(t, "/", ReplicaDisplayName("/"))
}
