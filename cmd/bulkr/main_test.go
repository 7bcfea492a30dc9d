package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportJSON struct {
	ID         string `json:"id"`
	Action     string `json:"action"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	StopReason string `json:"stop_reason"`
	Items      []struct {
		ItemID    string `json:"item_id"`
		Success   bool   `json:"success"`
		ErrorKind string `json:"error_kind"`
	} `json:"items"`
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.TODO(), append([]string{"bulkr"}, args...), nil, &stdout, &stderr)
	return stdout.String(), err
}

func TestRunFakeMarketplace(t *testing.T) {
	tests := map[string]struct {
		args          []string
		expAction     string
		expCompleted  int
		expTotal      int
		expStopReason string
	}{
		"Liking searched items should complete all of them.": {
			args:          []string{"run", "--action", "like", "--keyword", "*", "--quantity", "3"},
			expAction:     "like",
			expCompleted:  3,
			expTotal:      3,
			expStopReason: "none",
		},
		"Reposting searched items should complete all of them.": {
			args:          []string{"run", "--action", "repost", "--keyword", "*", "--quantity", "2"},
			expAction:     "repost",
			expCompleted:  2,
			expTotal:      2,
			expStopReason: "none",
		},
		"A rate limited marketplace should stop the batch.": {
			// The search is the first call, the second like is rate limited.
			args:          []string{"--fake-rate-limit-after", "2", "run", "--action", "like", "--keyword", "*", "--quantity", "3"},
			expAction:     "like",
			expCompleted:  1,
			expTotal:      3,
			expStopReason: "rate-limit",
		},
		"Noop actions should fail every item without stopping.": {
			args:          []string{"run", "--action", "noop", "--keyword", "*", "--quantity", "2", "--failure-pause", "0s"},
			expAction:     "noop",
			expCompleted:  0,
			expTotal:      2,
			expStopReason: "none",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			dbPath := filepath.Join(t.TempDir(), "bulkr.db")
			args := append([]string{"--fake", "--no-log", "--db-path", dbPath}, test.args...)
			args = append(args, "--min-pause", "0s", "--max-pause", "0s", "--no-progress", "--format", "json")

			out, err := runApp(t, args...)
			require.NoError(err)

			var report reportJSON
			require.NoError(json.Unmarshal([]byte(out), &report))
			assert.Equal(test.expAction, report.Action)
			assert.Equal(test.expCompleted, report.Completed)
			assert.Equal(test.expTotal, report.Total)
			assert.Equal(test.expStopReason, report.StopReason)

			// The report should be stored in the history.
			out, err = runApp(t, "--db-path", dbPath, "show", report.ID, "--format", "json")
			require.NoError(err)
			var stored reportJSON
			require.NoError(json.Unmarshal([]byte(out), &stored))
			assert.Equal(report, stored)
		})
	}
}

func TestRunHistory(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dbPath := filepath.Join(t.TempDir(), "bulkr.db")
	for _, action := range []string{"like", "follow", "like"} {
		_, err := runApp(t, "--fake", "--no-log", "--db-path", dbPath,
			"run", "--action", action, "--keyword", "*", "--quantity", "1",
			"--min-pause", "0s", "--max-pause", "0s", "--no-progress")
		require.NoError(err)
	}

	out, err := runApp(t, "--db-path", dbPath, "history", "--action", "like", "--format", "json")
	require.NoError(err)

	var reports []reportJSON
	require.NoError(json.Unmarshal([]byte(out), &reports))
	require.Len(reports, 2)
	for _, r := range reports {
		assert.Equal("like", r.Action)
		assert.Empty(r.Items)
	}
}

func TestRunInvalidCommands(t *testing.T) {
	tests := map[string]struct {
		args []string
	}{
		"Unknown actions should fail.": {
			args: []string{"--fake", "--no-log", "run", "--action", "share", "--item", "1"},
		},
		"Runs without items should fail.": {
			args: []string{"--fake", "--no-log", "run", "--action", "like"},
		},
		"Keyword searches without quantity should fail.": {
			args: []string{"--fake", "--no-log", "search", "--keyword", "dress"},
		},
		"Missing credentials should fail.": {
			args: []string{"--no-log", "search", "--user", "1"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"--db-path", filepath.Join(t.TempDir(), "bulkr.db")}, test.args...)
			_, err := runApp(t, args...)
			assert.Error(t, err)
		})
	}
}
