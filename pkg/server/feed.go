package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// getFeed serves the full point-in-time room listing.
func (s *Server) getFeed(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.assembler.Snapshot(ctx.Param("room")))
}

// pollFeed serves the same snapshot for the lightweight poller; a deleted
// room is reported through the snapshot's sentinel entry rather than a
// status code, so pollers keep a single response shape.
func (s *Server) pollFeed(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.assembler.Snapshot(ctx.Param("room")))
}
