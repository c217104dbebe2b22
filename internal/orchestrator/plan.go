// Package orchestrator executes multi-step delegation plans against the codex CLI.
package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	planLoadErrorTemplateConstant     = "failed to load plan: %w"
	planParseErrorTemplateConstant    = "failed to parse plan: %w"
	planPathRequiredMessageConstant   = "plan path must be provided"
	planEmptyStepsMessageConstant     = "plan must define at least one step"
	planSequenceMessageConstant       = "plan block must be defined as a sequence of steps"
	planNameMissingFallbackConstant   = "unnamed plan"
	stepTitleFallbackTemplateConstant = "step %d"
)

// Plan describes an ordered list of steps delegated to the codex executor.
type Plan struct {
	Name    string
	Context string
	Steps   []Step
}

// Step describes one unit of delegated work.
type Step struct {
	Title       string
	Instruction string
	Context     string
	Critical    bool
}

type planFile struct {
	Plan planDocument `yaml:"plan" json:"plan"`
}

type planDocument struct {
	Name    string        `yaml:"name" json:"name"`
	Context string        `yaml:"context" json:"context"`
	Steps   []stepWrapper `yaml:"steps" json:"steps"`
}

type stepWrapper struct {
	Step stepConfiguration `yaml:"step" json:"step"`
}

type stepConfiguration struct {
	Title       string `yaml:"title" json:"title"`
	Instruction string `yaml:"instruction" json:"instruction"`
	Context     string `yaml:"context" json:"context"`
	Critical    *bool  `yaml:"critical" json:"critical"`
}

// LoadPlan reads a plan definition from disk and performs basic validation.
func LoadPlan(filePath string) (Plan, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return Plan{}, errors.New(planPathRequiredMessageConstant)
	}

	contentBytes, readError := os.ReadFile(trimmedPath)
	if readError != nil {
		return Plan{}, fmt.Errorf(planLoadErrorTemplateConstant, readError)
	}

	return ParsePlan(contentBytes)
}

// ParsePlan decodes a plan definition from YAML or JSON content.
func ParsePlan(contentBytes []byte) (Plan, error) {
	var parsedPlan planFile
	if unmarshalError := yaml.Unmarshal(contentBytes, &parsedPlan); unmarshalError != nil {
		return Plan{}, fmt.Errorf(planParseErrorTemplateConstant, unmarshalError)
	}

	if sequenceError := ensureStepSequence(contentBytes); sequenceError != nil {
		return Plan{}, fmt.Errorf(planParseErrorTemplateConstant, sequenceError)
	}

	plan := Plan{
		Name:    strings.TrimSpace(parsedPlan.Plan.Name),
		Context: strings.TrimSpace(parsedPlan.Plan.Context),
		Steps:   make([]Step, 0, len(parsedPlan.Plan.Steps)),
	}
	if len(plan.Name) == 0 {
		plan.Name = planNameMissingFallbackConstant
	}

	for stepIndex := range parsedPlan.Plan.Steps {
		stepDefinition := parsedPlan.Plan.Steps[stepIndex].Step

		// Critical defaults to true when the plan author does not say otherwise.
		criticalValue := true
		if stepDefinition.Critical != nil {
			criticalValue = *stepDefinition.Critical
		}

		stepTitle := strings.TrimSpace(stepDefinition.Title)
		if len(stepTitle) == 0 {
			stepTitle = fmt.Sprintf(stepTitleFallbackTemplateConstant, stepIndex+1)
		}

		plan.Steps = append(plan.Steps, Step{
			Title:       stepTitle,
			Instruction: strings.TrimSpace(stepDefinition.Instruction),
			Context:     strings.TrimSpace(stepDefinition.Context),
			Critical:    criticalValue,
		})
	}

	if len(plan.Steps) == 0 {
		return Plan{}, errors.New(planEmptyStepsMessageConstant)
	}

	return plan, nil
}

func ensureStepSequence(contentBytes []byte) error {
	var planWrapper struct {
		Plan struct {
			Steps yaml.Node `yaml:"steps" json:"steps"`
		} `yaml:"plan" json:"plan"`
	}

	if unmarshalError := yaml.Unmarshal(contentBytes, &planWrapper); unmarshalError != nil {
		return unmarshalError
	}

	if planWrapper.Plan.Steps.Kind == 0 {
		return nil
	}

	switch planWrapper.Plan.Steps.Kind {
	case yaml.SequenceNode:
		return nil
	default:
		return errors.New(planSequenceMessageConstant)
	}
}
