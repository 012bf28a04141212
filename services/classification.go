package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"medivize/apperr"
	"medivize/locale"
	"medivize/metrics"
	"medivize/models"
	"medivize/providers"
	"medivize/storage"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnrecognizedLabel wird als drugName gemeldet, wenn der Klassifikator keine Klasse liefert.
var UnrecognizedLabel = locale.Text(locale.Unrecognized)

// Zulässige Dateiendungen und die dazu passenden, per Content-Sniffing erkannten Typen.
var (
	allowedExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".webp": true}
	allowedMIMETypes  = []string{"image/jpeg", "image/png", "image/webp"}
)

// DrugLookup ist die Katalogabfrage, mit der ein erkanntes Label angereichert wird:
// exakter Treffer vor Teilstring-Treffer.
type DrugLookup interface {
	GetByName(ctx context.Context, name string) (*models.DrugRecord, error)
}

// Upload ist ein vom Client hochgeladenes Bild.
type Upload struct {
	Filename string
	Size     int64
	Data     []byte
}

// ClassificationService verbindet Upload-Ablage, externen Klassifikator und Katalog.
type ClassificationService struct {
	Store      storage.UploadStore
	Classifier providers.Classifier
	Catalog    DrugLookup
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	MaxBytes   int64

	now func() time.Time
}

// NewClassificationService erstellt eine neue Instanz des ClassificationService.
func NewClassificationService(store storage.UploadStore, classifier providers.Classifier, catalog DrugLookup, maxBytes int64, logger *zap.Logger, m *metrics.Metrics) *ClassificationService {
	return &ClassificationService{
		Store:      store,
		Classifier: classifier,
		Catalog:    catalog,
		Logger:     logger,
		Metrics:    m,
		MaxBytes:   maxBytes,
		now:        time.Now,
	}
}

// Classify prüft und speichert das Bild, lässt es klassifizieren und ergänzt die Katalogdaten.
// Schlägt ein Schritt nach dem Speichern fehl, wird der Upload wieder gelöscht; bei Erfolg bleibt er liegen.
func (s *ClassificationService) Classify(ctx context.Context, up Upload) (*models.ClassificationResult, error) {
	log := s.Logger.With(zap.String("filename", up.Filename), zap.Int64("size", up.Size))

	contentType, err := s.validate(up)
	if err != nil {
		log.Info("Upload rejected", zap.Error(err))
		s.Metrics.Classification(metrics.OutcomeRejected)
		return nil, err
	}

	name := s.uploadName(up.Filename)
	imageURL, err := s.Store.Save(ctx, name, up.Data, contentType)
	if err != nil {
		log.Error("Failed to store upload", zap.Error(err))
		s.Metrics.Classification(metrics.OutcomeFailed)
		return nil, apperr.Wrap(apperr.Internal, locale.Text(locale.ClassifyFailed), err)
	}
	log = log.With(zap.String("upload", name))

	succeeded := false
	defer func() {
		if !succeeded {
			s.discard(ctx, name, log)
		}
	}()

	start := time.Now()
	prediction, err := s.Classifier.Predict(ctx, up.Data, up.Filename)
	s.Metrics.ClassifierLatency(time.Since(start))
	if err != nil {
		if apperr.Is(err, apperr.UpstreamUnavailable) {
			s.Metrics.Classification(metrics.OutcomeUpstream)
			return nil, err
		}
		s.Metrics.Classification(metrics.OutcomeFailed)
		return nil, apperr.Wrap(apperr.Internal, locale.Text(locale.ClassifyFailed), err)
	}
	log.Info("Classifier responded",
		zap.String("classifier", s.Classifier.Name()),
		zap.String("predicted_class", prediction.Label),
		zap.Float64("confidence", prediction.Confidence))

	result := &models.ClassificationResult{
		DrugName:    prediction.Label,
		Confidence:  prediction.Confidence,
		ImageURL:    imageURL,
		ProcessedAt: models.FormatTimestamp(s.now()),
	}
	if result.DrugName == "" {
		result.DrugName = UnrecognizedLabel
	}

	if result.DrugName != UnrecognizedLabel {
		result.DrugDetails = s.lookupDetails(ctx, result.DrugName, log)
		s.Metrics.Classification(metrics.OutcomeRecognized)
	} else {
		s.Metrics.Classification(metrics.OutcomeUnrecognized)
	}

	succeeded = true
	return result, nil
}

// validate prüft Präsenz, Dateiendung, Größe und den tatsächlichen Bildtyp, bevor irgendetwas
// gespeichert oder verschickt wird. Gibt den erkannten MIME-Typ zurück.
func (s *ClassificationService) validate(up Upload) (string, error) {
	if up.Filename == "" && len(up.Data) == 0 {
		return "", apperr.New(apperr.InvalidArgument, locale.Text(locale.ImageMissing))
	}
	if !allowedExtensions[strings.ToLower(filepath.Ext(up.Filename))] {
		return "", apperr.New(apperr.UnsupportedMediaType, locale.Text(locale.ImageTypeNotAllowed))
	}
	if up.Size > s.MaxBytes || int64(len(up.Data)) > s.MaxBytes {
		return "", apperr.New(apperr.InvalidArgument, locale.Textf(locale.ImageTooLarge, s.MaxBytes>>20))
	}
	if len(up.Data) == 0 {
		return "", apperr.New(apperr.InvalidArgument, locale.Text(locale.ImageMissing))
	}
	detected := mimetype.Detect(up.Data)
	if !mimetype.EqualsAny(detected.String(), allowedMIMETypes...) {
		return "", apperr.New(apperr.UnsupportedMediaType, locale.Text(locale.ImageTypeNotAllowed))
	}
	return detected.String(), nil
}

// uploadName erzeugt "drug-<unix-millis>-<zufall><endung>".
func (s *ClassificationService) uploadName(original string) string {
	return fmt.Sprintf("drug-%d-%d%s", s.now().UnixMilli(), uuid.New().ID()%1_000_000_000, filepath.Ext(original))
}

// lookupDetails sucht das Label im Katalog. Weder ein fehlender Eintrag noch ein
// Datenbankfehler lässt die Klassifikation scheitern.
func (s *ClassificationService) lookupDetails(ctx context.Context, label string, log *zap.Logger) *models.DrugRecord {
	rec, err := s.Catalog.GetByName(ctx, label)
	switch {
	case err == nil:
		return rec
	case apperr.Is(err, apperr.NotFound):
		log.Info("No catalog entry for classified drug", zap.String("drug", label))
	default:
		log.Error("Catalog lookup after classification failed", zap.String("drug", label), zap.Error(err))
	}
	return nil
}

// discard löscht einen Upload nach einem Fehler. Fehler beim Löschen werden nur geloggt.
func (s *ClassificationService) discard(ctx context.Context, name string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, name); err != nil {
		log.Error("Error deleting upload after failure", zap.Error(err))
		return
	}
	log.Info("Upload deleted after failure")
}
