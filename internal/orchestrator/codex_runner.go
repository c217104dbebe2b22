package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tyemirov/codexec/internal/execshell"
)

const (
	codexExecSubcommandConstant          = "exec"
	codexBypassApprovalsFlagConstant     = "--dangerously-bypass-approvals-and-sandbox"
	codexSkipGitRepoCheckFlagConstant    = "--skip-git-repo-check"
	codexJSONOutputFlagConstant          = "--json"
	codexVersionFlagConstant             = "--version"
	instructionSeparatorConstant         = "\n\n"
	executorNotConfiguredMessageConstant = "codex executor shell executor not configured"
	codexUnavailableMessageConstant      = "codex executable is not available"
	codexVerificationTimeoutConstant     = 10 * time.Second
)

var (
	// ErrShellExecutorNotConfigured indicates the shell executor dependency was missing.
	ErrShellExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)
	// ErrCodexUnavailable indicates the codex executable could not be invoked.
	ErrCodexUnavailable = errors.New(codexUnavailableMessageConstant)
)

// InstructionRequest describes one delegated instruction for the codex executable.
type InstructionRequest struct {
	Instruction      string
	Context          string
	WorkingDirectory string
	Timeout          time.Duration
}

// InstructionOutcome captures what the codex executable produced for one instruction.
type InstructionOutcome struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
	ProcessID      int
	TimedOut       bool
	Elapsed        time.Duration
}

// CodexRunner delegates instructions to the codex executable.
type CodexRunner interface {
	RunInstruction(executionContext context.Context, request InstructionRequest) (InstructionOutcome, error)
	VerifyAvailable(executionContext context.Context) error
}

// CodexExecutor runs codex through the logged shell executor.
type CodexExecutor struct {
	shellExecutor *execshell.ShellExecutor
}

// NewCodexExecutor constructs a CodexExecutor backed by the provided shell executor.
func NewCodexExecutor(shellExecutor *execshell.ShellExecutor) (*CodexExecutor, error) {
	if shellExecutor == nil {
		return nil, ErrShellExecutorNotConfigured
	}
	return &CodexExecutor{shellExecutor: shellExecutor}, nil
}

// VerifyAvailable confirms the codex executable responds to a version probe.
func (executor *CodexExecutor) VerifyAvailable(executionContext context.Context) error {
	if executionContext == nil {
		executionContext = context.Background()
	}
	probeContext, cancelProbe := context.WithTimeout(executionContext, codexVerificationTimeoutConstant)
	defer cancelProbe()

	_, executionError := executor.shellExecutor.ExecuteCodex(probeContext, execshell.CommandDetails{
		Arguments: []string{codexVersionFlagConstant},
	})
	if executionError != nil {
		return errors.Join(ErrCodexUnavailable, executionError)
	}
	return nil
}

// RunInstruction delegates a single instruction and reports the observable outcome.
//
// The instruction travels over standard input rather than the argument list;
// codex treats positional arguments as file paths and would ignore the text.
func (executor *CodexExecutor) RunInstruction(executionContext context.Context, request InstructionRequest) (InstructionOutcome, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	invocationContext := executionContext
	cancelInvocation := func() {}
	if request.Timeout > 0 {
		invocationContext, cancelInvocation = context.WithTimeout(executionContext, request.Timeout)
	}
	defer cancelInvocation()

	startTime := time.Now()
	executionResult, executionError := executor.shellExecutor.ExecuteCodex(invocationContext, execshell.CommandDetails{
		Arguments: []string{
			codexExecSubcommandConstant,
			codexBypassApprovalsFlagConstant,
			codexSkipGitRepoCheckFlagConstant,
			codexJSONOutputFlagConstant,
		},
		WorkingDirectory: request.WorkingDirectory,
		StandardInput:    buildInstructionPayload(request.Context, request.Instruction),
	})
	elapsed := time.Since(startTime)

	outcome := InstructionOutcome{
		StandardOutput: executionResult.StandardOutput,
		StandardError:  executionResult.StandardError,
		ExitCode:       executionResult.ExitCode,
		ProcessID:      executionResult.ProcessID,
		Elapsed:        elapsed,
	}

	if executionError == nil {
		return outcome, nil
	}

	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) {
		outcome.StandardOutput = commandFailure.Result.StandardOutput
		outcome.StandardError = commandFailure.Result.StandardError
		outcome.ExitCode = commandFailure.Result.ExitCode
		outcome.ProcessID = commandFailure.Result.ProcessID
		return outcome, executionError
	}

	if errors.Is(executionError, context.DeadlineExceeded) || invocationContext.Err() != nil {
		outcome.TimedOut = true
		return outcome, executionError
	}

	return outcome, executionError
}

func buildInstructionPayload(instructionContext string, instruction string) []byte {
	trimmedContext := strings.TrimSpace(instructionContext)
	trimmedInstruction := strings.TrimSpace(instruction)
	if len(trimmedContext) == 0 {
		return []byte(trimmedInstruction)
	}
	return []byte(trimmedContext + instructionSeparatorConstant + trimmedInstruction)
}
