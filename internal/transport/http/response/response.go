package response

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storechat/internal/app"
)

const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeUnauthorized   = 40100
	CodeForbidden      = 40300
	CodeNotFound       = 40400
	CodeConflict       = 40900
	CodeTooLarge       = 41300
	CodeInternalServer = 50000
)

type APIResponse struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Code:    CodeOK,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// FromError writes err using the status of its app.Kind. Errors that are not
// app errors are logged and reported as a generic failure.
func FromError(c *gin.Context, err error, fallback string) {
	var appErr *app.Error
	if !errors.As(err, &appErr) || appErr.Kind == app.KindInternal || appErr.Kind == app.KindUnavailable {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, APIResponse{
			Code:    CodeInternalServer,
			Kind:    app.KindInternal.String(),
			Message: fallback,
		})
		return
	}

	status, code := statusFor(appErr.Kind)
	c.JSON(status, APIResponse{
		Code:    code,
		Kind:    appErr.Kind.String(),
		Error:   appErr.Code,
		Message: appErr.Message,
	})
}

func statusFor(kind app.Kind) (int, int) {
	switch kind {
	case app.KindValidation:
		return http.StatusBadRequest, CodeBadRequest
	case app.KindUnauthenticated:
		return http.StatusUnauthorized, CodeUnauthorized
	case app.KindForbidden:
		return http.StatusForbidden, CodeForbidden
	case app.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case app.KindConflict:
		return http.StatusConflict, CodeConflict
	case app.KindTooLarge:
		return http.StatusRequestEntityTooLarge, CodeTooLarge
	default:
		return http.StatusInternalServerError, CodeInternalServer
	}
}
