package server

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/aggregator"
	"github.com/atikulmunna/sharetail/internal/hub"
	"github.com/atikulmunna/sharetail/internal/model"
	"github.com/atikulmunna/sharetail/internal/poller"
	"github.com/atikulmunna/sharetail/internal/tailer"
)

//go:embed all:web
var webFS embed.FS

// Readers hands out the shared tail reader. *poller.Coordinator implements it.
type Readers interface {
	Reader(ctx context.Context) (*tailer.Reader, error)
	Current() *tailer.Reader
	Stats() poller.Stats
}

// Discovery is the part of the path detector the status page uses.
// *discovery.Detector implements it.
type Discovery interface {
	ProbeAll(ctx context.Context, timeout time.Duration) []model.ProbeResult
	CheckConnectivity(ctx context.Context) model.Connectivity
}

// Options configures a Server.
type Options struct {
	Addr         string
	MaxLines     int           // default maxLines for /api/logs (1000)
	ProbeTimeout time.Duration // per-path timeout for /api/status (10s)
}

// Server holds the Gin engine and dependencies for the web viewer.
type Server struct {
	engine     *gin.Engine
	http       *http.Server
	hub        *hub.Hub
	aggregator *aggregator.Aggregator
	readers    Readers
	discovery  Discovery
	opts       Options
	log        *zap.Logger
}

// New creates the web server. discovery may be nil when the log directory is
// configured directly.
func New(h *hub.Hub, agg *aggregator.Aggregator, readers Readers, discovery Discovery, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = 1000
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:     engine,
		hub:        h,
		aggregator: agg,
		readers:    readers,
		discovery:  discovery,
		opts:       opts,
		log:        log.Named("server"),
	}
	s.engine.Use(s.accessLog())

	s.setupRoutes()
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// serveEmbedded reads a file from the embedded FS and writes it with the given content type.
func serveEmbedded(webContent fs.FS, name string, contentType string) gin.HandlerFunc {
	// Pre-read the file at startup so we don't read on every request.
	data, err := fs.ReadFile(webContent, name)
	return func(c *gin.Context) {
		if err != nil {
			c.String(http.StatusNotFound, "file not found: %s", name)
			return
		}
		c.Data(http.StatusOK, contentType, data)
	}
}

func (s *Server) setupRoutes() {
	webContent, _ := fs.Sub(webFS, "web")

	s.engine.GET("/", serveEmbedded(webContent, "index.html", "text/html; charset=utf-8"))
	s.engine.GET("/style.css", serveEmbedded(webContent, "style.css", "text/css; charset=utf-8"))
	s.engine.GET("/app.js", serveEmbedded(webContent, "app.js", "application/javascript; charset=utf-8"))

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/api/logs", s.handleLogs)
	s.engine.GET("/api/status", s.handleStatus)
	s.engine.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.aggregator.Snapshot())
	})

	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

func (s *Server) handleHealth(c *gin.Context) {
	stats := s.aggregator.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"uptime":          stats.Uptime,
		"clients":         stats.Clients,
		"lines_per_sec":   stats.LPS,
		"dropped_updates": stats.Dropped,
		"reader_ready":    s.readers.Current() != nil,
	})
}

// handleLogs serves an on-demand read relative to the caller's lastSize.
func (s *Server) handleLogs(c *gin.Context) {
	lastSize, err := queryInt(c, "lastSize", 0)
	if err != nil || lastSize < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "lastSize must be a non-negative integer"})
		return
	}
	maxLines, err := queryInt(c, "maxLines", int64(s.opts.MaxLines))
	if err != nil || maxLines <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "maxLines must be a positive integer"})
		return
	}

	reader, err := s.readers.Reader(c.Request.Context())
	if err != nil {
		s.log.Error("unable to initialize log reader", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Unable to initialize log reader"})
		return
	}

	c.JSON(http.StatusOK, reader.ReadLogs(c.Request.Context(), lastSize, int(maxLines)))
}

type status struct {
	Timestamp         time.Time           `json:"timestamp"`
	ReaderInitialized bool                `json:"log_reader_initialized"`
	Paths             []model.ProbeResult `json:"smb_paths"`
	Connectivity      *model.Connectivity `json:"connectivity,omitempty"`
	ActiveConnections int                 `json:"active_connections"`
	CurrentLogFile    *string             `json:"current_log_file,omitempty"`
	CurrentPath       *string             `json:"current_smb_path,omitempty"`
	Monitor           poller.Stats        `json:"monitor"`
	Stats             aggregator.Stats    `json:"stats"`
}

// handleStatus probes every candidate path afresh; it can take up to the
// probe timeout.
func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()
	stats := s.aggregator.Snapshot()
	st := status{
		Timestamp:         time.Now(),
		Paths:             []model.ProbeResult{},
		ActiveConnections: stats.Clients,
		Monitor:           s.readers.Stats(),
		Stats:             stats,
	}

	if s.discovery != nil {
		if probes := s.discovery.ProbeAll(ctx, s.opts.ProbeTimeout); probes != nil {
			st.Paths = probes
		}
		conn := s.discovery.CheckConnectivity(ctx)
		st.Connectivity = &conn
	}

	if r := s.readers.Current(); r != nil {
		st.ReaderInitialized = true
		state := r.State()
		st.CurrentPath = &state.Directory
		if state.CurrentFile != "" {
			st.CurrentLogFile = &state.CurrentFile
		}
	}

	c.JSON(http.StatusOK, st)
}

func queryInt(c *gin.Context, key string, def int64) (int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/ws" {
			return
		}
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Start runs the server until ctx is cancelled, then shuts it down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("web viewer listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
