package api

import (
	"errors"
	"io"
	"net/http"

	"medivize/apperr"
	"medivize/locale"
	"medivize/services"

	"github.com/gin-gonic/gin"
)

// multipartOverhead ist der Spielraum für Boundaries und Header über der Dateigröße hinaus.
const multipartOverhead = 1 << 20

func setupClassifyRoutes(rg *gin.RouterGroup, classifier ImageClassifier, maxBytes int64, resp responder) {
	rg.POST("/classify", func(c *gin.Context) {
		up, err := readUpload(c, maxBytes)
		if err != nil {
			resp.fail(c, err, locale.ClassifyFailed)
			return
		}
		result, err := classifier.Classify(c.Request.Context(), up)
		if err != nil {
			resp.fail(c, err, locale.ClassifyFailed)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
	})
}

// readUpload holt das Feld "image" aus dem Multipart-Body. Mehr als maxBytes+1 Bytes werden
// nie gelesen; die eigentliche Größenprüfung macht der ClassificationService.
func readUpload(c *gin.Context, maxBytes int64) (services.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fh, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return services.Upload{}, apperr.Wrap(apperr.InvalidArgument, locale.Textf(locale.ImageTooLarge, maxBytes>>20), err)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return services.Upload{}, apperr.Wrap(apperr.InvalidArgument, locale.Text(locale.ImageMissing), err)
		default:
			return services.Upload{}, apperr.Wrap(apperr.InvalidArgument, locale.Textf(locale.UploadError, err.Error()), err)
		}
	}

	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, apperr.Wrap(apperr.Internal, locale.Text(locale.ClassifyFailed), err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return services.Upload{}, apperr.Wrap(apperr.InvalidArgument, locale.Textf(locale.UploadError, err.Error()), err)
	}
	return services.Upload{Filename: fh.Filename, Size: fh.Size, Data: data}, nil
}
