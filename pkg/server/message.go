package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"roomdrop/pkg/log"
)

func (s *Server) postMessage(ctx echo.Context) error {
	name := ctx.Param("room")
	text := ctx.FormValue("text")

	if text == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "message text is required",
		})
	}
	if !s.storage.Exists(name) {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "no room by that name present",
		})
	}

	filename, err := s.storage.WriteMessage(name, text)
	if err != nil {
		log.Error().Err(err).Str("room", name).Msg("Failed to store message")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to store message",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"message": filename,
	})
}
