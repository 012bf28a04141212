package api

import (
	"net/http"

	"medivize/apperr"
	"medivize/locale"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor bildet die Fehlerklasse auf den HTTP-Status ab.
func statusFor(err error) int {
	e, ok := apperr.From(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case apperr.InvalidArgument, apperr.UnsupportedMediaType:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.UpstreamUnavailable:
		if e.Reason == apperr.ReasonTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// responder schreibt die Fehlerhülle {success:false,message,error?}.
type responder struct {
	log          *zap.Logger
	exposeErrors bool
}

func (r responder) fail(c *gin.Context, err error, fallback locale.Key) {
	status := statusFor(err)
	message := locale.Text(fallback)
	detail := err.Error()
	if e, ok := apperr.From(err); ok {
		if e.Message != "" {
			message = e.Message
		}
		if e.Err != nil {
			detail = e.Err.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		r.log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}

	body := gin.H{"success": false, "message": message}
	if r.exposeErrors && status >= http.StatusInternalServerError {
		body["error"] = detail
	}
	c.AbortWithStatusJSON(status, body)
}
