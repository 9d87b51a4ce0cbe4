// Package server exposes a single in-memory flow over HTTP.
//
// The router is chi with request ids and panic recovery. Every handler
// takes the server lock, so the flow sees one mutation at a time and
// observers registered on it run under the same lock. Flow events are
// fanned out to clients of GET /events as server-sent events.
//
// Routes:
//
//	GET    /flow                     current flow as a JSON document
//	PUT    /flow                     replace the flow; returns rejected links
//	GET    /flow.dot, /flow.svg      pinned node-link rendering
//	GET    /roots                    layout roots in insertion order
//	POST   /nodes                    create a node (201)
//	GET    /nodes/{id}               node view
//	PATCH  /nodes/{id}               move a node
//	DELETE /nodes/{id}               remove a node and its links
//	GET    /nodes/{id}/upstream      nodes feeding the node
//	GET    /nodes/{id}/downstream    nodes fed by the node
//	POST   /links                    connect two ports (201, or 422 on rejection)
//	DELETE /links/{key}              remove a link
//	POST   /layout                   run auto, snap or none layout
//	POST   /control                  apply a status or progress command
//	GET    /events                   event stream
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/flowmaker/pkg/cache"
	"github.com/matzehuels/flowmaker/pkg/control"
	"github.com/matzehuels/flowmaker/pkg/flow"
	"github.com/matzehuels/flowmaker/pkg/observability"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

// eventBuffer is the per-client queue length. Events for a client whose
// queue is full are dropped.
const eventBuffer = 64

// Options configures a Server.
type Options struct {
	// CellWidth and CellHeight are the layout defaults for POST /layout.
	CellWidth  float64
	CellHeight float64
	// Runner performs cached layouts and renders. Nil uses an uncached runner.
	Runner *pipeline.Runner
	Logger *log.Logger
}

// Server holds the flow and serves it over HTTP.
type Server struct {
	mu          sync.Mutex
	flow        *flow.Flow
	receiver    *control.Receiver
	unsubscribe func()

	clientsMu sync.Mutex
	clients   map[chan EventView]struct{}

	runner     *pipeline.Runner
	logger     *log.Logger
	cellWidth  float64
	cellHeight float64

	router chi.Router
}

// New returns a server around f. A nil flow starts empty.
func New(f *flow.Flow, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(cache.NewNullCache(), nil, opts.Logger)
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = pipeline.DefaultCellWidth
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = pipeline.DefaultCellHeight
	}
	if f == nil {
		f = newFlow(opts.Logger)
	}

	s := &Server{
		clients:    make(map[chan EventView]struct{}),
		runner:     opts.Runner,
		logger:     opts.Logger.WithPrefix("server"),
		cellWidth:  opts.CellWidth,
		cellHeight: opts.CellHeight,
	}
	s.setFlow(f)
	s.router = s.buildRouter()
	return s
}

func newFlow(logger *log.Logger) *flow.Flow {
	return flow.New(flow.WithIDSource(flow.UUIDSource()), flow.WithLogger(logger))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		return srv.Shutdown(shutdownCtx)
	}
}

// Flow returns the current flow. Callers must not mutate it while the
// server is running.
func (s *Server) Flow() *flow.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flow
}

// setFlow swaps the flow and moves the event subscription. Caller holds mu
// or is the constructor.
func (s *Server) setFlow(f *flow.Flow) {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.flow = f
	s.receiver = control.NewReceiver(f, s.logger)
	s.unsubscribe = f.Subscribe(s.broadcast)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hooksMiddleware)

	r.Get("/health", s.handleHealth)

	r.Get("/flow", s.handleGetFlow)
	r.Put("/flow", s.handlePutFlow)
	r.Get("/flow.dot", s.handleRender(pipeline.FormatDOT, "text/vnd.graphviz"))
	r.Get("/flow.svg", s.handleRender(pipeline.FormatSVG, "image/svg+xml"))
	r.Get("/roots", s.handleRoots)

	r.Route("/nodes", func(r chi.Router) {
		r.Post("/", s.handleCreateNode)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetNode)
			r.Patch("/", s.handleMoveNode)
			r.Delete("/", s.handleDeleteNode)
			r.Get("/upstream", s.handleNeighbours(true))
			r.Get("/downstream", s.handleNeighbours(false))
		})
	})

	r.Post("/links", s.handleConnect)
	r.Delete("/links/{key}", s.handleDeleteLink)

	r.Post("/layout", s.handleLayout)
	r.Post("/control", s.handleControl)
	r.Get("/events", s.handleEvents)

	return r
}

// hooksMiddleware reports each request to the registered server hooks,
// keyed by the matched route pattern.
func hooksMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, ww.Status(), time.Since(start))
	})
}

// broadcast forwards a flow event to every stream client without blocking.
func (s *Server) broadcast(e flow.Event) {
	v := newEventView(e)
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- v:
		default:
			s.logger.Warn("event dropped for slow client", "event", v.Type)
		}
	}
}

func (s *Server) addClient() chan EventView {
	ch := make(chan EventView, eventBuffer)
	s.clientsMu.Lock()
	s.clients[ch] = struct{}{}
	s.clientsMu.Unlock()
	return ch
}

func (s *Server) removeClient(ch chan EventView) {
	s.clientsMu.Lock()
	if _, ok := s.clients[ch]; ok {
		delete(s.clients, ch)
		close(ch)
	}
	s.clientsMu.Unlock()
}

func (s *Server) closeClients() {
	s.clientsMu.Lock()
	for ch := range s.clients {
		delete(s.clients, ch)
		close(ch)
	}
	s.clientsMu.Unlock()
}
