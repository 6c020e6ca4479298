package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"roomdrop/pkg/log"
	"roomdrop/pkg/models"
	"roomdrop/pkg/room"
	"roomdrop/pkg/upload"
)

// uploadChunk ingests one multipart chunk. The form fields follow the
// dropzone.js naming the original client used: dzchunkindex,
// dztotalchunkcount, dzchunkbyteoffset.
func (s *Server) uploadChunk(ctx echo.Context) error {
	name := ctx.Param("room")
	if !s.storage.Exists(name) {
		return ctx.JSON(http.StatusNotFound, map[string]string{
			"error": "no room by that name present",
		})
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "file parameter is required",
		})
	}

	index, err := strconv.Atoi(ctx.FormValue("dzchunkindex"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "dzchunkindex must be a number",
		})
	}
	total, err := strconv.Atoi(ctx.FormValue("dztotalchunkcount"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "dztotalchunkcount must be a number",
		})
	}
	offset, err := strconv.ParseInt(ctx.FormValue("dzchunkbyteoffset"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{
			"error": "dzchunkbyteoffset must be a number",
		})
	}

	chunk := models.Chunk{
		Room:    name,
		Target:  file.Filename,
		Index:   index,
		Total:   total,
		Offset:  offset,
		Note:    ctx.FormValue("note"),
		Archive: ctx.FormValue("archive") == "true",
		Batch:   ctx.FormValue("batch"),
	}
	if chunk.Archive {
		if chunk.Batch == "" {
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": "batch name is required in archive mode",
			})
		}
		if raw := ctx.FormValue("filecount"); raw != "" {
			count, err := strconv.Atoi(raw)
			if err != nil {
				return ctx.JSON(http.StatusBadRequest, map[string]string{
					"error": "filecount must be a number",
				})
			}
			chunk.FileCount = count
		}
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Str("target", file.Filename).Msg("Failed to open uploaded chunk")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to open uploaded chunk",
		})
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close uploaded chunk")
		}
	}()

	chunk.Data, err = io.ReadAll(src)
	if err != nil {
		log.Error().Err(err).Str("target", file.Filename).Msg("Failed to read uploaded chunk")
		return ctx.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to read uploaded chunk",
		})
	}

	result, err := s.tracker.HandleChunk(chunk)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrBadChunk), errors.Is(err, room.ErrAmbiguousName), errors.Is(err, room.ErrUnsafeName):
			return ctx.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		default:
			log.Error().Err(err).Str("room", name).Str("target", file.Filename).Msg("Chunk ingestion failed")
			return ctx.JSON(http.StatusInternalServerError, map[string]string{
				"error": "upload failed",
			})
		}
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"completed": result.Completed,
		"version":   result.Version,
		"bundled":   result.Bundled,
	})
}
