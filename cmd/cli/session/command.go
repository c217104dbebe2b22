// Package session assembles the codex session inspection commands.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/sessions"
	"github.com/tyemirov/codexec/internal/utils"
	flagutils "github.com/tyemirov/codexec/internal/utils/flags"
)

const (
	commandUseConstant              = "session"
	commandShortDescriptionConstant = "Inspect codex session transcripts and checkpoints"
	commandLongDescriptionConstant  = "session lists codex transcript files, summarizes the latest one, renders resume context, and shows the most recent execution checkpoint."

	listUseConstant              = "list"
	listShortDescriptionConstant = "List codex session transcripts, newest first"

	latestUseConstant              = "latest"
	latestShortDescriptionConstant = "Show details of the most recent session transcript"

	contextUseConstant              = "context [file]"
	contextShortDescriptionConstant = "Render resume context from a session transcript"

	checkpointUseConstant              = "checkpoint"
	checkpointShortDescriptionConstant = "Show the most recent execution checkpoint"

	noSessionsMessageConstant          = "No sessions found."
	noCheckpointMessageConstant        = "No checkpoint found."
	noSessionTranscriptMessageConstant = "no session transcript found"
	sessionListEntryTemplate           = "%s  %6.2f MB  %s  messages=%d\n"
	sessionTimestampLayout             = "2006-01-02 15:04:05"
	sessionInfoEncodeTemplate          = "unable to encode session info: %w"
	checkpointEncodeTemplate           = "unable to encode checkpoint: %w"
)

// LoggerProvider supplies the structured logger used during command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the session command tree.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the session command with its subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	listCommand := &cobra.Command{
		Use:           listUseConstant,
		Short:         listShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runList,
	}

	latestCommand := &cobra.Command{
		Use:           latestUseConstant,
		Short:         latestShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runLatest,
	}

	contextCommand := &cobra.Command{
		Use:           contextUseConstant,
		Short:         contextShortDescriptionConstant,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runContext,
	}

	checkpointCommand := &cobra.Command{
		Use:           checkpointUseConstant,
		Short:         checkpointShortDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.runCheckpoint,
	}

	command.AddCommand(listCommand, latestCommand, contextCommand, checkpointCommand)

	return command, nil
}

func (builder *CommandBuilder) runList(command *cobra.Command, arguments []string) error {
	discovery, discoveryError := builder.resolveDiscovery()
	if discoveryError != nil {
		return discoveryError
	}

	sessionPaths, listError := discovery.ListSessions(resolveWorkingDirectory(command))
	if listError != nil {
		return listError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	if len(sessionPaths) == 0 {
		fmt.Fprintln(output, noSessionsMessageConstant)
		return nil
	}

	for _, sessionPath := range sessionPaths {
		sessionInfo, infoError := discovery.SessionInfo(sessionPath)
		if infoError != nil {
			continue
		}
		fmt.Fprintf(
			output,
			sessionListEntryTemplate,
			filepath.Base(sessionInfo.FilePath),
			sessionInfo.SizeMegabytes,
			sessionInfo.Modified.Format(sessionTimestampLayout),
			sessionInfo.Messages,
		)
	}
	return nil
}

func (builder *CommandBuilder) runLatest(command *cobra.Command, arguments []string) error {
	discovery, discoveryError := builder.resolveDiscovery()
	if discoveryError != nil {
		return discoveryError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())

	sessionPath, latestError := discovery.LatestSession(resolveWorkingDirectory(command))
	if latestError != nil {
		return latestError
	}
	if len(sessionPath) == 0 {
		fmt.Fprintln(output, noSessionsMessageConstant)
		return nil
	}

	sessionInfo, infoError := discovery.SessionInfo(sessionPath)
	if infoError != nil {
		return infoError
	}

	encoded, encodeError := json.MarshalIndent(sessionInfo, "", "  ")
	if encodeError != nil {
		return fmt.Errorf(sessionInfoEncodeTemplate, encodeError)
	}
	fmt.Fprintln(output, string(encoded))
	return nil
}

func (builder *CommandBuilder) runContext(command *cobra.Command, arguments []string) error {
	workingDirectory := resolveWorkingDirectory(command)

	sessionPath := ""
	if len(arguments) > 0 {
		sessionPath = strings.TrimSpace(arguments[0])
	}
	if len(sessionPath) == 0 {
		discovery, discoveryError := builder.resolveDiscovery()
		if discoveryError != nil {
			return discoveryError
		}
		latestPath, latestError := discovery.LatestSession(workingDirectory)
		if latestError != nil {
			return latestError
		}
		sessionPath = latestPath
	}
	if len(sessionPath) == 0 {
		return errors.New(noSessionTranscriptMessageConstant)
	}

	resumeContext, contextError := sessions.BuildResumeContextWithLimit(sessionPath, workingDirectory, builder.resolveConfiguration().MessageLimit)
	if contextError != nil {
		return contextError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())
	fmt.Fprintln(output, resumeContext)
	return nil
}

func (builder *CommandBuilder) runCheckpoint(command *cobra.Command, arguments []string) error {
	checkpointStore, storeError := sessions.NewCheckpointStore()
	if storeError != nil {
		return storeError
	}

	output := utils.NewFlushingWriter(command.OutOrStdout())

	checkpoint, checkpointFound, loadError := checkpointStore.LoadLatest(resolveWorkingDirectory(command))
	if loadError != nil {
		return loadError
	}
	if !checkpointFound {
		fmt.Fprintln(output, noCheckpointMessageConstant)
		return nil
	}

	encoded, encodeError := json.MarshalIndent(checkpoint, "", "  ")
	if encodeError != nil {
		return fmt.Errorf(checkpointEncodeTemplate, encodeError)
	}
	fmt.Fprintln(output, string(encoded))
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveDiscovery() (*sessions.Discovery, error) {
	configuration := builder.resolveConfiguration()
	if len(configuration.SessionDirectory) > 0 {
		return sessions.NewDiscoveryWithDirectory(configuration.SessionDirectory), nil
	}
	return sessions.NewDiscovery()
}

func resolveWorkingDirectory(command *cobra.Command) string {
	if executionFlags, executionFlagsAvailable := flagutils.ResolveExecutionFlags(command); executionFlagsAvailable && executionFlags.WorkingDirectorySet {
		return executionFlags.WorkingDirectory
	}
	return ""
}
