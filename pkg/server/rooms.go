package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"roomdrop/pkg/lifecycle"
	"roomdrop/pkg/log"
	"roomdrop/pkg/registry"
)

func (s *Server) listRooms(ctx echo.Context) error {
	names, err := s.registry.List()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list rooms")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list rooms",
		})
	}
	return ctx.JSON(http.StatusOK, map[string][]string{
		"rooms": names,
	})
}

func (s *Server) createRoom(ctx echo.Context) error {
	name := ctx.FormValue("room")
	passcode := ctx.FormValue("passcode")

	ttl, err := strconv.Atoi(ctx.FormValue("ttl"))
	if err != nil || ttl < 1 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "ttl must be a positive number of seconds",
		})
	}

	log.Info().Str("room", name).Int("ttl", ttl).Msg("Room create request")

	if err := s.registry.Create(name, passcode); err != nil {
		switch {
		case errors.Is(err, registry.ErrInvalidName):
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, registry.ErrRoomExists):
			return ctx.JSON(http.StatusConflict, map[string]string{
				"error": err.Error(),
			})
		default:
			log.Error().Err(err).Str("room", name).Msg("Failed to create room")
			return ctx.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to create room",
			})
		}
	}

	if !lifecycle.NeverExpires(ttl) {
		s.scheduler.Schedule(name, time.Duration(ttl)*time.Second)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"room": name,
		"ttl":  ttl,
	})
}

func (s *Server) joinRoom(ctx echo.Context) error {
	name := ctx.FormValue("room")
	passcode := ctx.FormValue("passcode")

	if err := s.registry.Authenticate(name, passcode); err != nil {
		switch {
		case errors.Is(err, registry.ErrRoomNotFound):
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": err.Error(),
			})
		case errors.Is(err, registry.ErrWrongPasscode):
			return ctx.JSON(http.StatusUnauthorized, map[string]string{
				"error": err.Error(),
			})
		default:
			log.Error().Err(err).Str("room", name).Msg("Failed to authenticate join")
			return ctx.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to join room",
			})
		}
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"room": name,
	})
}

// deleteRoom removes a room explicitly, cancelling its expiration timer
// first so the stale timer cannot fire on a later recreation.
func (s *Server) deleteRoom(ctx echo.Context) error {
	name := ctx.Param("room")
	log.Info().Str("room", name).Msg("Room delete request")

	s.scheduler.Cancel(name)
	if err := s.registry.Delete(name); err != nil {
		if errors.Is(err, registry.ErrInvalidName) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		log.Error().Err(err).Str("room", name).Msg("Failed to delete room")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to delete room",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"room": name,
	})
}
