package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"roomdrop/pkg/log"
	"roomdrop/pkg/room"
	"roomdrop/pkg/version"
)

func (s *Server) listVersions(ctx echo.Context) error {
	name := ctx.Param("room")
	target := ctx.Param("target")

	folder, err := room.EncodeFolderName(target)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	history, err := s.versions.List(name, folder)
	if err != nil {
		if errors.Is(err, version.ErrTargetNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "no versions for that file",
			})
		}
		log.Error().Err(err).Str("room", name).Str("target", target).Msg("Failed to list versions")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list versions",
		})
	}

	return ctx.JSON(http.StatusOK, history)
}

// downloadVersion serves one version blob as an attachment carrying the
// file's display name, not the numeric blob name.
func (s *Server) downloadVersion(ctx echo.Context) error {
	name := ctx.Param("room")
	target := ctx.Param("target")

	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil || number < 1 {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "version must be a positive number",
		})
	}

	folder, err := room.EncodeFolderName(target)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	path, err := s.versions.Resolve(name, folder, number)
	if err != nil {
		if errors.Is(err, version.ErrTargetNotFound) || errors.Is(err, version.ErrVersionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{
				"error": "version not found",
			})
		}
		log.Error().Err(err).Str("room", name).Str("target", target).Msg("Failed to resolve version")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to resolve version",
		})
	}

	log.Info().Str("room", name).Str("target", target).Int("version", number).Msg("Serving version download")
	return ctx.Attachment(path, target)
}
