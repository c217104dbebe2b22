package sessions

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultContextMessageLimitConstant = 50
	messageTruncationLimitConstant     = 200
	messageTruncationSuffixConstant    = "..."
	messageTypeConstant                = "message"
	userRoleConstant                   = "user"
	assistantRoleConstant              = "assistant"
	messageLineTemplateConstant        = "%s: %s"

	resumeContextTemplateConstant = `=== RESUMING PREVIOUS SESSION ===
Session file: %s
Project: %s
Modified: %s

=== RECENT CONTEXT ===
%s

=== CONTINUATION ===
Continue from where we left off. The previous context shows what was being worked on.
`
)

// ExtractContextSummary collects the most recent conversation messages from a transcript.
func ExtractContextSummary(sessionPath string, messageLimit int) (string, error) {
	if messageLimit <= 0 {
		messageLimit = defaultContextMessageLimitConstant
	}

	contentBytes, readError := os.ReadFile(sessionPath)
	if readError != nil {
		return "", readError
	}

	messages := make([]string, 0, messageLimit)
	for _, transcriptLine := range strings.Split(string(contentBytes), "\n") {
		if len(strings.TrimSpace(transcriptLine)) == 0 {
			continue
		}

		message, parsed := parseTranscriptMessage(transcriptLine)
		if !parsed {
			continue
		}
		if message.Type != messageTypeConstant {
			continue
		}
		if message.Role != userRoleConstant && message.Role != assistantRoleConstant {
			continue
		}
		if len(message.Content) == 0 {
			continue
		}

		messageContent := truncateMessage(message.Content)
		messages = append(messages, fmt.Sprintf(messageLineTemplateConstant, message.Role, messageContent))
		if len(messages) >= messageLimit {
			break
		}
	}

	if len(messages) > messageLimit {
		messages = messages[len(messages)-messageLimit:]
	}
	return strings.Join(messages, "\n"), nil
}

// truncateMessage shortens long messages on a rune boundary so multi-byte
// characters are never split mid-sequence.
func truncateMessage(messageContent string) string {
	messageRunes := []rune(messageContent)
	if len(messageRunes) <= messageTruncationLimitConstant {
		return messageContent
	}
	return string(messageRunes[:messageTruncationLimitConstant]) + messageTruncationSuffixConstant
}

// BuildResumeContext renders the continuation preamble sent ahead of new instructions.
func BuildResumeContext(sessionPath string, workingDirectory string) (string, error) {
	return BuildResumeContextWithLimit(sessionPath, workingDirectory, defaultContextMessageLimitConstant)
}

// BuildResumeContextWithLimit renders the continuation preamble with a custom message limit.
func BuildResumeContextWithLimit(sessionPath string, workingDirectory string, messageLimit int) (string, error) {
	fileInfo, statError := os.Stat(sessionPath)
	if statError != nil {
		return "", statError
	}

	contextSummary, summaryError := ExtractContextSummary(sessionPath, messageLimit)
	if summaryError != nil {
		return "", summaryError
	}

	return fmt.Sprintf(resumeContextTemplateConstant,
		fileInfo.Name(),
		workingDirectory,
		fileInfo.ModTime().Format(time.RFC3339),
		contextSummary,
	), nil
}
