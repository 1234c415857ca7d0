package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/scenario"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/archive"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/storage/bolt"
)

var scenarioDir = filepath.Join("..", "scenario", "testdata", "scenarios")

// finishedBattle plays the last_life scenario, which ends with side A winning.
func finishedBattle(t *testing.T) *game.Host {
	t.Helper()
	s, err := scenario.Load(filepath.Join(scenarioDir, "last_life.yaml"))
	require.NoError(t, err)
	res, err := scenario.Run(s, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.True(t, res.Host.Fight.Over())
	return res.Host
}

func TestSimulateScenarioDir(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenarioDir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "PASS last_life")
	assert.Contains(t, buf.String(), "0 failed")
}

func TestSimulateJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSimulateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join(scenarioDir, "last_life.yaml")})

	require.NoError(t, cmd.Execute())
	var result SimulateResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "last_life", result.Scenarios[0].Name)
	assert.True(t, result.Scenarios[0].Passed)
	assert.Equal(t, 1, result.Passed)
	assert.NotEmpty(t, result.Scenarios[0].Checksum)
}

func TestSimulateGoldenTraces(t *testing.T) {
	golden := t.TempDir()
	run := func(args ...string) (string, error) {
		buf := &bytes.Buffer{}
		cmd := NewSimulateCommand(&RootOptions{Format: "text"})
		cmd.SetOut(buf)
		cmd.SetArgs(append([]string{scenarioDir, "--golden", golden}, args...))
		err := cmd.Execute()
		return buf.String(), err
	}

	_, err := run("--update")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(golden, "last_life.golden"))

	_, err = run()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "last_life.golden"), []byte("stale\n"), 0o644))
	out, err := run()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL last_life")
	assert.Contains(t, out, "trace differs")
}

func TestSimulateErrors(t *testing.T) {
	cmd := NewSimulateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{scenarioDir, "--update"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	cmd = NewSimulateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.yaml")})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayFile(t *testing.T) {
	h := finishedBattle(t)
	path, err := game.ReplayOf(h).SaveToFile(t.TempDir())
	require.NoError(t, err)
	sum := game.ComputeChecksum(h.Fight).Hash

	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--file", path, "--checksum", sum})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "checksum matches")
	assert.Contains(t, buf.String(), sum)

	cmd = NewReplayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--file", path, "--checksum", "0000"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestReplayFromArchive(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "archive.db")
	h := finishedBattle(t)

	st, err := archive.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Record(context.Background(), h))
	require.NoError(t, st.Close())

	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--archive", dbPath, "--id", h.ID, "--save", dir})
	require.NoError(t, cmd.Execute())

	var result ReplayResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.True(t, result.Matches)
	assert.Equal(t, len(h.Log), result.Events)
	assert.Equal(t, game.ComputeChecksum(h.Fight).Hash, result.Expected)
	assert.FileExists(t, result.SavedTo)

	cmd = NewReplayCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--archive", dbPath, "--id", "missing"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestArchiveListing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "archive.db")
	h := finishedBattle(t)

	st, err := archive.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Record(context.Background(), h))
	require.NoError(t, st.Close())

	buf := &bytes.Buffer{}
	cmd := NewArchiveCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())

	var listing map[string][]ArchivedBattle
	require.NoError(t, json.Unmarshal(buf.Bytes(), &listing))
	require.Len(t, listing["battles"], 1)
	assert.Equal(t, h.ID, listing["battles"][0].ID)
	assert.Equal(t, "A", listing["battles"][0].Winner)
}

func TestInspectBoltStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "battles.db")
	h := finishedBattle(t)

	st, err := bolt.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Save(context.Background(), h))
	require.NoError(t, st.Close())

	buf := &bytes.Buffer{}
	cmd := NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, h.ID+"\n", buf.String())

	buf.Reset()
	cmd = NewInspectCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, h.ID})
	require.NoError(t, cmd.Execute())

	var sum HostSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sum))
	assert.Equal(t, h.ID, sum.ID)
	assert.True(t, sum.Over)
	require.NotNil(t, sum.Winner)
	assert.Equal(t, fight.SideA, *sum.Winner)
	assert.Equal(t, len(h.Log), sum.Events)
	assert.Equal(t, game.ComputeChecksum(h.Fight).Hash, sum.Checksum)

	cmd = NewInspectCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "missing"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSchemaDescribesMessages(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewSchemaCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--message", "action"})
	require.NoError(t, cmd.Execute())

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Battle Action", doc["title"])
	assert.Contains(t, buf.String(), "sacrifices")

	out := filepath.Join(t.TempDir(), "schemas", "client.json")
	cmd = NewSchemaCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--message", "client", "--out", out})
	require.NoError(t, cmd.Execute())
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	cmd = NewSchemaCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--message", "lobby"})
	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootRejectsUnknownFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "schema"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
