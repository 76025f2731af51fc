package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandevgo/bobbin/internal/state"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesOneLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)

	before := state.NewState("sess", "Tester")
	after := before.Clone()
	after.TurnCounter = 1
	after.ConversationSummary = "first exchange"

	require.NoError(t, logger.Append(TurnRecord{
		TsUTC:       "2026-01-01T00:00:00Z",
		SessionID:   "sess",
		TurnNumber:  1,
		UserInput:   "hi",
		FinalOutput: "hello",
		StateBefore: before,
		StateAfter:  after,
	}))
	require.NoError(t, logger.Append(TurnRecord{
		TsUTC:      "2026-01-01T00:01:00Z",
		SessionID:  "sess",
		TurnNumber: 2,
		UserInput:  "line\nbreaks\nstay on one record",
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []TurnRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		var rec TurnRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	require.Equal(t, 1, records[0].TurnNumber)
	require.Equal(t, "hello", records[0].FinalOutput)
	require.Equal(t, "first exchange", records[0].StateAfter.ConversationSummary)
	require.Zero(t, records[0].StateBefore.TurnCounter)
	require.Equal(t, "line\nbreaks\nstay on one record", records[1].UserInput)
	// nil tools normalize to an empty array, never null
	require.NotNil(t, records[1].Tools)
	require.Empty(t, records[1].Tools)
}

func TestAppendSurvivesExternalRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.jsonl")
	logger, err := NewLogger(path)
	require.NoError(t, err)

	require.NoError(t, logger.Append(TurnRecord{TurnNumber: 1}))
	require.NoError(t, os.Remove(path))
	require.NoError(t, logger.Append(TurnRecord{TurnNumber: 2}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec TurnRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, 2, rec.TurnNumber)
}
