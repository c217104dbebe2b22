package monitor_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tyemirov/codexec/internal/events"
	"github.com/tyemirov/codexec/internal/monitor"
)

func TestNewServerRequiresHub(testInstance *testing.T) {
	_, creationError := monitor.NewServer(nil, zap.NewNop(), "")
	require.ErrorIs(testInstance, creationError, monitor.ErrHubNotConfigured)
}

func TestServerHandlerIndex(testInstance *testing.T) {
	server, creationError := monitor.NewServer(monitor.NewHub(), zap.NewNop(), monitor.DefaultAddressConstant)
	require.NoError(testInstance, creationError)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(testInstance, http.StatusOK, recorder.Code)
	require.Contains(testInstance, recorder.Body.String(), "codexec monitor")
}

func TestServerHandlerStatus(testInstance *testing.T) {
	hub := monitor.NewHub()
	hub.Report(events.Event{Code: events.EventCodePlanStart, PlanName: "release pipeline"})
	hub.Report(events.Event{Code: events.EventCodeStepComplete, PlanName: "release pipeline", StepTitle: "compile"})

	server, creationError := monitor.NewServer(hub, zap.NewNop(), "")
	require.NoError(testInstance, creationError)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(testInstance, http.StatusOK, recorder.Code)

	var state monitor.ExecutionState
	require.NoError(testInstance, json.Unmarshal(recorder.Body.Bytes(), &state))
	require.Equal(testInstance, "release pipeline", state.PlanName)
	require.Len(testInstance, state.Steps, 1)
	require.Equal(testInstance, "completed", state.Steps[0].Status)
}
