package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/smazurov/rpirtspd/internal/api/models"
	"github.com/smazurov/rpirtspd/internal/audio"
	"github.com/smazurov/rpirtspd/internal/control"
	"github.com/smazurov/rpirtspd/internal/events"
	"github.com/smazurov/rpirtspd/internal/logging"
	"github.com/smazurov/rpirtspd/internal/mounts"
	"github.com/smazurov/rpirtspd/internal/params"
	"github.com/smazurov/rpirtspd/internal/version"
)

const authRealm = `Basic realm="rpirtspd API"`

// Controller is the control plane the API drives.
type Controller interface {
	Apply(command string) []control.Result
	StoredOptions() []control.StoredOption
	PersistEnabled() bool
	Registry() *params.Registry
	Instance(stream string) (params.Instance, bool)
}

// MountTable reports the state of the RTSP mount points.
type MountTable interface {
	Status() []mounts.Status
}

// Server is the HTTP control API.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	controller Controller
	mounts     MountTable
	eventBus   *events.Bus
	options    *Options
	logger     *slog.Logger
}

// basicAuthMiddleware creates middleware for HTTP basic authentication
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		// Skip auth for operations without security requirements
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var credentials string
		if authHeader := ctx.Header("Authorization"); authHeader != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(authHeader, prefix) {
				s.unauthorized(ctx, "Invalid authentication type")
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		} else if queryAuth := ctx.Query("auth"); queryAuth != "" {
			// EventSource cannot set headers
			decoded, err := base64.StdEncoding.DecodeString(queryAuth)
			if err != nil {
				s.unauthorized(ctx, "Invalid credentials format", err)
				return
			}
			credentials = string(decoded)
		}

		if credentials == "" {
			s.unauthorized(ctx, "Authentication required")
			return
		}

		user, pass, ok := strings.Cut(credentials, ":")
		if !ok {
			s.unauthorized(ctx, "Invalid credentials format")
			return
		}
		if user != username || pass != password {
			s.unauthorized(ctx, "Invalid credentials")
			return
		}

		next(ctx)
	}
}

func (s *Server) unauthorized(ctx huma.Context, msg string, errs ...error) {
	ctx.SetHeader("WWW-Authenticate", authRealm)
	_ = huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg, errs...)
}

// Options configures the API server.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	CORSOrigin        string // comma-separated, "*" for any
	Controller        Controller
	Mounts            MountTable
	EventBus          *events.Bus
	AudioDetector     audio.Detector
	PrometheusHandler http.Handler // served at /metrics without auth
}

// NewServer creates the API server on a Go 1.22+ ServeMux.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	corsConfig := DefaultCORSConfig()
	if origins := ParseOrigins(opts.CORSOrigin); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	}
	cors := newCORS(corsConfig)
	mux.HandleFunc("OPTIONS /", cors.preflight)

	config := huma.DefaultConfig("rpirtspd API", version.String())
	config.Info.Description = "Runtime parameter control for the RTSP mount points"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	eventBus := opts.EventBus
	if eventBus == nil {
		eventBus = events.New()
	}

	server := &Server{
		api:        api,
		mux:        mux,
		controller: opts.Controller,
		mounts:     opts.Mounts,
		eventBus:   eventBus,
		options:    opts,
		logger:     logging.GetLogger("api"),
	}

	api.UseMiddleware(cors.middleware)
	api.UseMiddleware(accessLog(logging.GetLogger("http")))
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	server.registerMetricsRoutes()
	server.registerRoutes()

	return server
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// GetAPI returns the Huma API instance
func (s *Server) GetAPI() huma.API {
	return s.api
}

// Start serves on addr until Stop. It returns http.ErrServerClosed after Stop.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting API server", "addr", ln.Addr().String())
	s.logger.Info("OpenAPI documentation available", "url", "http://"+ln.Addr().String()+"/docs")

	s.httpServer = &http.Server{Handler: s.mux}
	return s.httpServer.Serve(ln)
}

// Stop shuts the server down, waiting for in-flight requests up to ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		// event streams hold connections open
		return s.httpServer.Close()
	}
	return nil
}

// registerRoutes sets up all API endpoints
func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{}, // Empty security = no auth required
	}, func(_ context.Context, _ *struct{}) (*models.HealthResponse, error) {
		body := models.HealthData{Status: "ok", Message: "API is healthy"}
		if s.mounts != nil {
			for _, st := range s.mounts.Status() {
				body.Mounts++
				if st.Live {
					body.Live++
				}
			}
		}
		return &models.HealthResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(_ context.Context, _ *struct{}) (*models.VersionResponse, error) {
		versionInfo := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   versionInfo.Version,
				GitCommit: versionInfo.GitCommit,
				BuildDate: versionInfo.BuildDate,
				BuildID:   versionInfo.BuildID,
				GoVersion: versionInfo.GoVersion,
				Compiler:  versionInfo.Compiler,
				Platform:  versionInfo.Platform,
			},
		}, nil
	})

	s.registerControlRoutes()
	s.registerOptionsRoutes()
	s.registerMountRoutes()
	s.registerAudioRoutes()
	s.registerSSERoutes()
	s.registerLogRoutes()
}

// withAuth returns security requirement for basic auth
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
