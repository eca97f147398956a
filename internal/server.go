package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"connectrpc.com/connect"
	"connectrpc.com/grpchealth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskmanagement/internal/config"
	"github.com/kazz187/taskmanagement/internal/task"
	"github.com/kazz187/taskmanagement/pkg/cerr"
	"github.com/kazz187/taskmanagement/pkg/clog"
	"github.com/kazz187/taskmanagement/pkg/panicerr"
)

// HealthServiceName is the service name answered by the gRPC health check
// besides the empty whole-server name.
const HealthServiceName = "taskmanagement.v1.TaskService"

const contentSecurityPolicy = "default-src 'self';" +
	"script-src 'self' https://vercel.live;" +
	"connect-src 'self' https://vercel.live;" +
	"base-uri 'self';" +
	"font-src 'self' https: data:;" +
	"form-action 'self';" +
	"frame-ancestors 'self';" +
	"img-src 'self' data:;" +
	"object-src 'none';" +
	"script-src-attr 'none';" +
	"style-src 'self' https: 'unsafe-inline';" +
	"upgrade-insecure-requests"

// securityHeaders mirrors helmet's defaults with the CSP above.
var securityHeaders = [][2]string{
	{"Content-Security-Policy", contentSecurityPolicy},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Origin-Agent-Cluster", "?1"},
	{"Referrer-Policy", "no-referrer"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-DNS-Prefetch-Control", "off"},
	{"X-Download-Options", "noopen"},
	{"X-Frame-Options", "SAMEORIGIN"},
	{"X-Permitted-Cross-Domain-Policies", "none"},
	{"X-XSS-Protection", "0"},
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	server     *http.Server
	env        *config.Env
	taskServer *task.Server
	pinger     Pinger
}

func NewServer(env *config.Env, taskServer *task.Server, pinger Pinger) *Server {
	return &Server{
		env:        env,
		taskServer: taskServer,
		pinger:     pinger,
	}
}

// Handler builds the complete HTTP handler: CORS around h2c around the chi
// router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(clog.SlogChiMiddleware())
	for _, h := range securityHeaders {
		r.Use(middleware.SetHeader(h[0], h[1]))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("server is running"))
	})
	r.Method(http.MethodGet, "/health", &HealthChecker{pinger: s.pinger})
	r.Mount(grpchealth.NewHandler(&grpcHealthChecker{pinger: s.pinger}))

	r.Group(func(r chi.Router) {
		r.Use(
			cerr.NewJSONResponseChiMiddleware(),
			panicerr.ChiMiddleware,
		)
		s.taskServer.Mount(r)
	})

	notFound := func(w http.ResponseWriter, r *http.Request) {
		cerr.WriteJSONError(r.Context(), w, cerr.NewError(cerr.NotFound, "not found", nil))
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	// Any origin may call the API.
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPatch,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(h2c.NewHandler(r, &http2.Server{}))
}

// ListenAndServe starts the HTTP server. ctx becomes the base context of every
// request, so cancelling it cancels in-flight storage calls on shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type HealthChecker struct {
	pinger Pinger
}

func (hc *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := hc.pinger.Ping(r.Context()); err != nil {
		clog.AddError(r.Context(), err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type grpcHealthChecker struct {
	pinger Pinger
}

func (c *grpcHealthChecker) Check(ctx context.Context, req *grpchealth.CheckRequest) (*grpchealth.CheckResponse, error) {
	if req.Service != "" && req.Service != HealthServiceName {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("unknown service %q", req.Service))
	}
	if err := c.pinger.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		return &grpchealth.CheckResponse{Status: grpchealth.StatusNotServing}, nil
	}
	return &grpchealth.CheckResponse{Status: grpchealth.StatusServing}, nil
}
