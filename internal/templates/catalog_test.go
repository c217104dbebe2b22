package templates_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/codexec/internal/templates"
)

func TestTemplateNames(testInstance *testing.T) {
	require.Equal(
		testInstance,
		[]string{"add-feature", "create-project", "debug-fix", "refactor"},
		templates.TemplateNames(),
	)
}

func TestIsTemplate(testInstance *testing.T) {
	testCases := []struct {
		name           string
		templateName   string
		expectedResult bool
	}{
		{name: "known_template", templateName: "create-project", expectedResult: true},
		{name: "padded_template_name", templateName: "  refactor  ", expectedResult: true},
		{name: "unknown_template", templateName: "deploy", expectedResult: false},
		{name: "empty_name", templateName: "", expectedResult: false},
	}

	for testIndex := range testCases {
		testCase := testCases[testIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedResult, templates.IsTemplate(testCase.templateName))
		})
	}
}

func TestLoadTemplate(testInstance *testing.T) {
	testInstance.Run("create_project", func(testInstance *testing.T) {
		loadedPlan, loadError := templates.LoadTemplate("create-project")
		require.NoError(testInstance, loadError)
		require.Equal(testInstance, "create-project", loadedPlan.Name)
		require.Len(testInstance, loadedPlan.Steps, 3)
		require.True(testInstance, loadedPlan.Steps[0].Critical)
		require.False(testInstance, loadedPlan.Steps[1].Critical)
		require.True(testInstance, loadedPlan.Steps[2].Critical)
	})

	testInstance.Run("all_presets_parse", func(testInstance *testing.T) {
		for _, templateName := range templates.TemplateNames() {
			loadedPlan, loadError := templates.LoadTemplate(templateName)
			require.NoError(testInstance, loadError)
			require.NotEmpty(testInstance, loadedPlan.Steps)
		}
	})

	testInstance.Run("unknown_template", func(testInstance *testing.T) {
		_, loadError := templates.LoadTemplate("deploy")
		require.Error(testInstance, loadError)
		require.Contains(testInstance, loadError.Error(), `unknown template "deploy"`)
		require.Contains(testInstance, loadError.Error(), "add-feature, create-project, debug-fix, refactor")
	})
}
