package monitor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	DefaultAddressConstant = ":5555"

	indexRoutePathConstant  = "/"
	statusRoutePathConstant = "/api/status"
	eventsRoutePathConstant = "/events"

	serverShutdownGracePeriodConstant = 5 * time.Second
	eventStreamNameConstant           = "log"
	hubNotConfiguredMessageConstant   = "monitor hub not configured"

	serverStartedMessageConstant = "monitor server listening"
	serverStoppedMessageConstant = "monitor server stopped"
	serverAddressFieldConstant   = "address"

	indexPageContentConstant = `<!DOCTYPE html>
<html>
<head>
<title>codexec monitor</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2rem; }
h1 { color: #6cf; }
.step { padding: 0.2rem 0; }
.completed { color: #6f6; }
.failed { color: #f66; }
.skipped { color: #999; }
.running { color: #ff6; }
#log { margin-top: 1rem; border-top: 1px solid #333; padding-top: 1rem; white-space: pre-wrap; }
</style>
</head>
<body>
<h1>codexec monitor</h1>
<div id="plan"></div>
<div id="steps"></div>
<div id="log"></div>
<script>
async function refresh() {
  const response = await fetch('/api/status');
  const state = await response.json();
  document.getElementById('plan').textContent = state.plan_name || 'idle';
  document.getElementById('steps').innerHTML = (state.steps || []).map(
    step => '<div class="step ' + step.status + '">' + step.status + ' ' + step.title + '</div>'
  ).join('');
  document.getElementById('log').textContent = (state.log || []).join('\n');
}
refresh();
const source = new EventSource('/events');
source.addEventListener('log', refresh);
setInterval(refresh, 5000);
</script>
</body>
</html>`
)

// ErrHubNotConfigured indicates the hub dependency was missing.
var ErrHubNotConfigured = errors.New(hubNotConfiguredMessageConstant)

// Server exposes the execution hub over HTTP.
type Server struct {
	hub     *Hub
	logger  *zap.Logger
	address string
}

// NewServer constructs a monitor Server for the provided hub.
func NewServer(hub *Hub, logger *zap.Logger, address string) (*Server, error) {
	if hub == nil {
		return nil, ErrHubNotConfigured
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(address) == 0 {
		address = DefaultAddressConstant
	}
	return &Server{hub: hub, logger: logger, address: address}, nil
}

// Handler builds the HTTP routing surface for the monitor.
func (server *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET(indexRoutePathConstant, server.handleIndex)
	router.GET(statusRoutePathConstant, server.handleStatus)
	router.GET(eventsRoutePathConstant, server.handleEvents)
	return router
}

// Run serves the monitor until the provided context is cancelled.
func (server *Server) Run(executionContext context.Context) error {
	if executionContext == nil {
		executionContext = context.Background()
	}

	httpServer := &http.Server{
		Addr:    server.address,
		Handler: server.Handler(),
	}

	serveErrors := make(chan error, 1)
	go func() {
		server.logger.Info(serverStartedMessageConstant, zap.String(serverAddressFieldConstant, server.address))
		serveErrors <- httpServer.ListenAndServe()
	}()

	select {
	case serveError := <-serveErrors:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return serveError
	case <-executionContext.Done():
		shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), serverShutdownGracePeriodConstant)
		defer cancelShutdown()
		shutdownError := httpServer.Shutdown(shutdownContext)
		server.logger.Info(serverStoppedMessageConstant, zap.String(serverAddressFieldConstant, server.address))
		return shutdownError
	}
}

func (server *Server) handleIndex(requestContext *gin.Context) {
	requestContext.Data(http.StatusOK, gin.MIMEHTML, []byte(indexPageContentConstant))
}

func (server *Server) handleStatus(requestContext *gin.Context) {
	requestContext.JSON(http.StatusOK, server.hub.State())
}

func (server *Server) handleEvents(requestContext *gin.Context) {
	subscription, cancelSubscription := server.hub.Subscribe()
	defer cancelSubscription()

	requestContext.Stream(func(writer io.Writer) bool {
		select {
		case logLine, open := <-subscription:
			if !open {
				return false
			}
			requestContext.SSEvent(eventStreamNameConstant, logLine)
			return true
		case <-requestContext.Request.Context().Done():
			return false
		}
	})
}
