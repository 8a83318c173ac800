package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storechat/internal/app"
	"storechat/internal/transport/http/middleware"
	"storechat/internal/transport/http/response"
)

// multipartOverhead is the room left for form fields and part headers on top
// of the file size limit.
const multipartOverhead = 1 << 20

type UploadHandler struct {
	uploads *app.UploadService
}

func NewUploadHandler(uploads *app.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes()+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.FromError(c, h.formError(err), "upload failed")
		return
	}

	sessionID, _ := strconv.ParseUint(c.PostForm("session_id"), 10, 64)
	if sessionID == 0 {
		response.FromError(c, app.ErrInvalidInput.WithMessage("session required"), "upload failed")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.FromError(c, app.ErrUploadPartial, "upload failed")
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(c.Request.Context(), middleware.ActorFrom(c), app.UploadInput{
		SessionID: uint(sessionID),
		FileName:  fileHeader.Filename,
		Size:      fileHeader.Size,
		Body:      file,
	})
	if err != nil {
		response.FromError(c, err, "upload failed")
		return
	}
	response.OK(c, result)
}

func (h *UploadHandler) formError(err error) error {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return app.ErrNoFile
	case errors.As(err, &tooBig):
		return h.uploads.SizeError()
	case errors.Is(err, io.ErrUnexpectedEOF):
		return app.ErrUploadPartial
	default:
		return app.ErrUploadPartial.WithMessage("malformed upload: %v", err)
	}
}
