// Package server is the HTTP surface of roomdrop: thin echo handlers that
// delegate to the registry, scheduler, upload tracker, and feed assembler.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"roomdrop/pkg/archive"
	"roomdrop/pkg/feed"
	"roomdrop/pkg/lifecycle"
	"roomdrop/pkg/log"
	"roomdrop/pkg/registry"
	"roomdrop/pkg/room"
	"roomdrop/pkg/upload"
	"roomdrop/pkg/version"
)

const shutdownTimeout = 10 * time.Second

// Server wires the roomdrop core behind HTTP routes.
type Server struct {
	contentDir   string
	buildVersion string
	certFile     string
	keyFile      string
	echo         *echo.Echo

	registry  *registry.Registry
	scheduler *lifecycle.Scheduler
	storage   *room.Storage
	versions  *version.Store
	tracker   *upload.Tracker
	assembler *feed.Assembler
}

// New constructs a Server and its core components over contentDir.
func New(contentDir, buildVersion string) (*Server, error) {
	reg, err := registry.New(contentDir)
	if err != nil {
		return nil, err
	}

	storage := room.NewStorage(contentDir)
	versions := version.NewStore(storage)
	builder := archive.NewBuilder(contentDir, storage)

	s := &Server{
		contentDir:   contentDir,
		buildVersion: buildVersion,
		echo:         echo.New(),
		registry:     reg,
		storage:      storage,
		versions:     versions,
		tracker:      upload.NewTracker(versions, builder),
		assembler:    feed.NewAssembler(storage, versions),
	}
	s.scheduler = lifecycle.NewScheduler(reg.Delete)
	s.setupRoutes()
	return s, nil
}

// WithTLS makes Start serve HTTPS with the given certificate pair.
func (s *Server) WithTLS(certFile, keyFile string) *Server {
	s.certFile = certFile
	s.keyFile = keyFile
	return s
}

// Start serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start(addr string) error {
	go func() {
		log.Info().
			Str("addr", addr).
			Str("content_dir", s.contentDir).
			Str("version", s.buildVersion).
			Bool("tls", s.certFile != "").
			Msg("Starting roomdrop server")

		var err error
		if s.certFile != "" {
			err = s.echo.StartTLS(addr, s.certFile, s.keyFile)
		} else {
			err = s.echo.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return s.Shutdown()
}

// Shutdown stops the HTTP listener and disarms all room timers.
func (s *Server) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	s.scheduler.Stop()
	log.Info().Msg("Shutdown complete")
	return nil
}

func (s *Server) setupRoutes() {
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	s.echo.Use(middleware.Recover())

	s.echo.GET("/rooms", s.listRooms)
	s.echo.POST("/room/create", s.createRoom)
	s.echo.POST("/room/join", s.joinRoom)
	s.echo.DELETE("/room/:room", s.deleteRoom)

	s.echo.POST("/room/:room/message", s.postMessage)
	s.echo.POST("/room/:room/upload", s.uploadChunk)
	s.echo.GET("/room/:room/feed", s.getFeed)
	s.echo.GET("/room/:room/poll", s.pollFeed)

	s.echo.GET("/room/:room/file/:target/versions", s.listVersions)
	s.echo.GET("/room/:room/file/:target/versions/:number/download", s.downloadVersion)
}
