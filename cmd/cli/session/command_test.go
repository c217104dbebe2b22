package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	sessioncmd "github.com/tyemirov/codexec/cmd/cli/session"
	"github.com/tyemirov/codexec/internal/sessions"
)

func buildSessionCommand(testInstance *testing.T, configuration sessioncmd.CommandConfiguration) (*cobra.Command, *bytes.Buffer) {
	testInstance.Helper()

	builder := &sessioncmd.CommandBuilder{
		ConfigurationProvider: func() sessioncmd.CommandConfiguration { return configuration },
	}

	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)

	outputBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(outputBuffer)
	command.SetContext(context.Background())
	return command, outputBuffer
}

func writeTranscript(testInstance *testing.T, directory string, fileName string, content string, modified time.Time) string {
	testInstance.Helper()

	transcriptPath := filepath.Join(directory, fileName)
	require.NoError(testInstance, os.WriteFile(transcriptPath, []byte(content), 0o644))
	require.NoError(testInstance, os.Chtimes(transcriptPath, modified, modified))
	return transcriptPath
}

func TestSessionListCommand(testInstance *testing.T) {
	sessionDirectory := testInstance.TempDir()
	baseMoment := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	writeTranscript(testInstance, sessionDirectory, "older.jsonl", `{"type":"message","role":"user","content":"first"}`+"\n", baseMoment)
	writeTranscript(testInstance, sessionDirectory, "newer.jsonl", `{"type":"message","role":"user","content":"second"}`+"\n", baseMoment.Add(time.Hour))

	command, outputBuffer := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{SessionDirectory: sessionDirectory})
	command.SetArgs([]string{"list"})

	require.NoError(testInstance, command.Execute())
	output := outputBuffer.String()
	require.Contains(testInstance, output, "newer.jsonl")
	require.Contains(testInstance, output, "older.jsonl")
	require.Contains(testInstance, output, "messages=1")
	require.Less(testInstance, bytes.Index(outputBuffer.Bytes(), []byte("newer.jsonl")), bytes.Index(outputBuffer.Bytes(), []byte("older.jsonl")))
}

func TestSessionListCommandWithoutSessions(testInstance *testing.T) {
	command, outputBuffer := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{SessionDirectory: testInstance.TempDir()})
	command.SetArgs([]string{"list"})

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "No sessions found.")
}

func TestSessionLatestCommand(testInstance *testing.T) {
	sessionDirectory := testInstance.TempDir()
	writeTranscript(
		testInstance,
		sessionDirectory,
		"session.jsonl",
		`{"type":"message","role":"user","content":"inspect me"}`+"\n",
		time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
	)

	command, outputBuffer := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{SessionDirectory: sessionDirectory})
	command.SetArgs([]string{"latest"})

	require.NoError(testInstance, command.Execute())

	var sessionInfo sessions.SessionInfo
	require.NoError(testInstance, json.Unmarshal(outputBuffer.Bytes(), &sessionInfo))
	require.Equal(testInstance, 1, sessionInfo.Messages)
}

func TestSessionLatestCommandWithoutSessions(testInstance *testing.T) {
	command, outputBuffer := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{SessionDirectory: testInstance.TempDir()})
	command.SetArgs([]string{"latest"})

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "No sessions found.")
}

func TestSessionContextCommandWithExplicitFile(testInstance *testing.T) {
	sessionDirectory := testInstance.TempDir()
	transcriptPath := writeTranscript(
		testInstance,
		sessionDirectory,
		"session.jsonl",
		`{"type":"message","role":"user","content":"resume this work"}`+"\n",
		time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
	)

	command, outputBuffer := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{SessionDirectory: sessionDirectory, MessageLimit: 10})
	command.SetArgs([]string{"context", transcriptPath})

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "=== RESUMING PREVIOUS SESSION ===")
	require.Contains(testInstance, outputBuffer.String(), "user: resume this work")
}

func TestSessionContextCommandWithoutSessions(testInstance *testing.T) {
	command, _ := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{SessionDirectory: testInstance.TempDir()})
	command.SetArgs([]string{"context"})

	executionError := command.Execute()
	require.EqualError(testInstance, executionError, "no session transcript found")
}

func TestSessionCheckpointCommandWithoutCheckpoint(testInstance *testing.T) {
	testInstance.Setenv("HOME", testInstance.TempDir())

	command, outputBuffer := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{})
	command.SetArgs([]string{"checkpoint"})

	require.NoError(testInstance, command.Execute())
	require.Contains(testInstance, outputBuffer.String(), "No checkpoint found.")
}

func TestSessionCheckpointCommandShowsLatest(testInstance *testing.T) {
	homeDirectory := testInstance.TempDir()
	testInstance.Setenv("HOME", homeDirectory)

	store := sessions.NewCheckpointStoreWithDirectory(filepath.Join(homeDirectory, ".codexec", "checkpoints"))
	_, saveError := store.Save(sessions.Checkpoint{
		Timestamp: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC),
		Task:      "release pipeline",
	})
	require.NoError(testInstance, saveError)

	command, outputBuffer := buildSessionCommand(testInstance, sessioncmd.CommandConfiguration{})
	command.SetArgs([]string{"checkpoint"})

	require.NoError(testInstance, command.Execute())

	var checkpoint sessions.Checkpoint
	require.NoError(testInstance, json.Unmarshal(outputBuffer.Bytes(), &checkpoint))
	require.Equal(testInstance, "release pipeline", checkpoint.Task)
}

func TestSessionCommandConfigurationSanitize(testInstance *testing.T) {
	sanitized := sessioncmd.CommandConfiguration{SessionDirectory: "  /tmp/sessions  ", MessageLimit: 0}.Sanitize()
	require.Equal(testInstance, "/tmp/sessions", sanitized.SessionDirectory)
	require.Equal(testInstance, 50, sanitized.MessageLimit)
}
