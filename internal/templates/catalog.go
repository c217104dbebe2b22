// Package templates ships the built-in plan presets embedded into the binary.
package templates

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/tyemirov/codexec/internal/orchestrator"
)

//go:embed presets/*.yaml
var presetFiles embed.FS

const (
	presetDirectoryConstant            = "presets"
	presetFileExtensionConstant        = ".yaml"
	unknownTemplateTemplateConstant    = "unknown template %q (available: %s)"
	templateReadErrorTemplateConstant  = "failed to read template %q: %w"
	templateParseErrorTemplateConstant = "failed to parse template %q: %w"
	templateNameSeparatorConstant      = ", "
)

// TemplateNames lists the available preset names in sorted order.
func TemplateNames() []string {
	entries, readError := presetFiles.ReadDir(presetDirectoryConstant)
	if readError != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), presetFileExtensionConstant))
	}
	sort.Strings(names)
	return names
}

// IsTemplate reports whether the provided name matches a built-in preset.
func IsTemplate(templateName string) bool {
	trimmedName := strings.TrimSpace(templateName)
	for _, candidateName := range TemplateNames() {
		if candidateName == trimmedName {
			return true
		}
	}
	return false
}

// LoadTemplate resolves a built-in preset into an executable plan.
func LoadTemplate(templateName string) (orchestrator.Plan, error) {
	trimmedName := strings.TrimSpace(templateName)
	if !IsTemplate(trimmedName) {
		return orchestrator.Plan{}, fmt.Errorf(unknownTemplateTemplateConstant, trimmedName, strings.Join(TemplateNames(), templateNameSeparatorConstant))
	}

	presetPath := path.Join(presetDirectoryConstant, trimmedName+presetFileExtensionConstant)
	presetContent, readError := presetFiles.ReadFile(presetPath)
	if readError != nil {
		return orchestrator.Plan{}, fmt.Errorf(templateReadErrorTemplateConstant, trimmedName, readError)
	}

	parsedPlan, parseError := orchestrator.ParsePlan(presetContent)
	if parseError != nil {
		return orchestrator.Plan{}, fmt.Errorf(templateParseErrorTemplateConstant, trimmedName, parseError)
	}
	return parsedPlan, nil
}
