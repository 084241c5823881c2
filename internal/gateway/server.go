package gateway

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lhdbsbz/applydesk/internal/apply"
	"github.com/lhdbsbz/applydesk/internal/chat"
	"github.com/lhdbsbz/applydesk/internal/config"
)

//go:embed web/index.html web/static/*
var webFS embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Endpoint is the outbound channel both flows share.
type Endpoint interface {
	apply.Dispatcher
	chat.Asker
}

// Server is the ApplyDesk web gateway.
type Server struct {
	Config  *config.Config
	Views   *ViewManager
	Apply   *apply.Handler
	target  Endpoint
	httpSrv *http.Server
	startAt time.Time
}

func NewServer(cfg *config.Config, target Endpoint) *Server {
	return &Server{
		Config:  cfg,
		Views:   NewViewManager(cfg.Gateway.ViewTTL, target, slog.Default()),
		Apply:   apply.NewHandler(target, slog.Default()),
		target:  target,
		startAt: time.Now(),
	}
}

// Engine builds the gin engine with every route registered.
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.MaxMultipartMemory = s.Config.Gateway.MaxUploadBytes

	engine.GET("/health", s.ginHealth)
	engine.GET("/ws", s.ginWebSocket)
	s.registerAPIRoutes(engine)

	webRoot, _ := fs.Sub(webFS, "web")
	staticFS, _ := fs.Sub(webFS, "web/static")
	engine.StaticFS("/static", http.FS(staticFS))
	engine.GET("/", s.ginWebIndex(webRoot))
	return engine
}

// Start begins listening and blocks until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)

	addr := fmt.Sprintf(":%d", s.Config.Gateway.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.Views.Run(ctx)

	slog.Info("ApplyDesk gateway starting", "port", s.Config.Gateway.Port)
	slog.Info("application page", "url", fmt.Sprintf("http://localhost:%d/", s.Config.Gateway.Port))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) ginWebIndex(webRoot fs.FS) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := fs.ReadFile(webRoot, "index.html")
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", data)
	}
}

func (s *Server) endpointConfigured() bool {
	if u, ok := s.target.(interface{ URL() string }); ok {
		return u.URL() != ""
	}
	return true
}

func (s *Server) ginHealth(c *gin.Context) {
	cfg := config.Get()
	if cfg == nil {
		cfg = s.Config
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(s.startAt).String(),
		"views":    s.Views.Count(),
		"viewTTL":  cfg.Gateway.ViewTTL.String(),
		"endpoint": s.endpointConfigured(),
	})
}

func (s *Server) ginWebSocket(c *gin.Context) {
	view, ok := s.Views.Get(c.Query("view"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown view"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	conn := &Conn{
		ID:          uuid.NewString(),
		WS:          ws,
		ConnectedAt: time.Now(),
	}
	// Subscribe before the snapshot so nothing falls in between. The page
	// drops messages it already has by id and status or control events
	// whose seq the snapshot already covers.
	view.addConn(conn)
	defer view.removeConn(conn.ID)
	conn.Send(ResOK("hello", view.Snapshot()))

	// Chat requests started on this socket end with it.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	slog.Debug("connection established", "view", view.ID, "conn", conn.ID)

	for {
		frame, err := ReadFrame(ws)
		if err != nil {
			slog.Debug("connection closed", "view", view.ID, "conn", conn.ID,
				"duration", time.Since(conn.ConnectedAt).Round(time.Millisecond), "error", err)
			return
		}
		view.touch()

		if frame.Type != "req" {
			continue
		}
		if frame.Method != MethodChatSend && frame.Method != MethodChatKey {
			conn.Send(ResErr(frame.ID, "UNKNOWN_METHOD", "only chat.send and chat.key are supported over WebSocket"))
			continue
		}

		go func(f Frame) {
			result, err := s.handleChatFrame(ctx, view, f)
			if err != nil {
				conn.Send(ResErr(f.ID, "INVALID_PARAMS", err.Error()))
				return
			}
			conn.Send(ResOK(f.ID, result))
		}(frame)
	}
}
