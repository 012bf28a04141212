// Package api stellt den Katalog und die Bildklassifikation per HTTP bereit.
package api

import (
	"context"
	"net/http"
	"time"

	"medivize/locale"
	"medivize/metrics"
	"medivize/models"
	"medivize/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DrugCatalog sind die Katalogoperationen, die die HTTP-Schicht braucht.
type DrugCatalog interface {
	List(ctx context.Context) ([]models.DrugRecord, error)
	GetByName(ctx context.Context, name string) (*models.DrugRecord, error)
	Search(ctx context.Context, query string) ([]models.DrugRecord, error)
	Create(ctx context.Context, in models.DrugInput) (string, error)
	UpdateByName(ctx context.Context, current string, in models.DrugInput) error
	DeleteByName(ctx context.Context, name string) error
}

// ImageClassifier klassifiziert ein hochgeladenes Bild.
type ImageClassifier interface {
	Classify(ctx context.Context, up services.Upload) (*models.ClassificationResult, error)
}

// Dependencies bündelt alles, was der Router verdrahtet.
type Dependencies struct {
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Catalog    DrugCatalog
	Classifier ImageClassifier

	// MaxUploadBytes begrenzt die Bilddatei; der Request-Body darf um den Multipart-Overhead größer sein.
	MaxUploadBytes int64
	CORSOrigins    []string
	ExposeErrors   bool

	// Uploads wird unter /uploads ausgeliefert, sofern gesetzt (nur lokale Ablage).
	Uploads http.FileSystem
	// MetricsHandler wird unter /metrics eingehängt, sofern gesetzt.
	MetricsHandler http.Handler

	now func() time.Time
}

// NewRouter baut die Gin-Engine mit allen Routen.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.now == nil {
		deps.now = time.Now
	}
	resp := responder{log: deps.Logger, exposeErrors: deps.ExposeErrors}

	router := gin.New()
	// Namen dürfen "/" enthalten, solange sie als %2F kodiert sind.
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(RequestLogger(deps.Logger))
	router.Use(RequestMetrics(deps.Metrics))
	router.Use(Recovery(deps.Logger, deps.ExposeErrors))
	router.Use(CORS(deps.CORSOrigins))

	if deps.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}
	if deps.Uploads != nil {
		router.StaticFS("/uploads", deps.Uploads)
	}

	apiGroup := router.Group("/api")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"message":   locale.Text(locale.HealthRunning),
			"timestamp": models.FormatTimestamp(deps.now()),
		})
	})

	drugs := apiGroup.Group("/drugs")
	setupDrugRoutes(drugs, deps.Catalog, resp)
	setupClassifyRoutes(drugs, deps.Classifier, deps.MaxUploadBytes, resp)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": locale.Text(locale.EndpointNotFound)})
	})

	return router
}
