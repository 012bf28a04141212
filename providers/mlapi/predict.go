package mlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"medivize/apperr"
	"medivize/config"
	"medivize/locale"
	"medivize/providers"

	resty "github.com/go-resty/resty/v2"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// formField ist der Feldname, den die ML API für das Bild erwartet.
const formField = "file"

// Client implementiert das Classifier-Interface für die MEDIVIZE ML API.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
	http   *resty.Client
}

// NewClient erstellt einen Client mit Basic-Auth und dem konfigurierten Timeout. Es gibt keine Retries.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		Config: cfg,
		Logger: logger,
		http: resty.New().
			SetTimeout(cfg.ClassifierTimeout).
			SetBasicAuth(cfg.ClassifierUsername, cfg.ClassifierPassword).
			SetHeader("Accept", "application/json"),
	}
}

// Name gibt den Namen des Klassifikators zurück.
func (c *Client) Name() string {
	return "mlapi"
}

// Predict schickt das Bild als multipart/form-data an die ML API.
func (c *Client) Predict(ctx context.Context, image []byte, filename string) (*providers.Prediction, error) {
	log := c.Logger.With(zap.String("url", c.Config.ClassifierURL), zap.String("filename", filename))
	log.Info("Calling ML API")

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader(formField, filename, bytes.NewReader(image)).
		Post(c.Config.ClassifierURL)
	if err != nil {
		log.Error("ML API request failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return nil, transportError(err)
	}

	log.Info("ML API responded", zap.Int("status", resp.StatusCode()), zap.Duration("elapsed", time.Since(start)))

	body := decodeBody(resp.Body())
	if !resp.IsSuccess() {
		log.Error("ML API returned error status", zap.Int("status", resp.StatusCode()), zap.ByteString("body", resp.Body()))
		return nil, statusError(resp.StatusCode(), body)
	}

	return parsePrediction(body), nil
}

// transportError unterscheidet Timeouts von sonstigen Verbindungsfehlern.
func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.Upstream(apperr.ReasonTimeout, locale.Text(locale.ClassifierTimeout), err)
	}
	return apperr.Upstream(apperr.ReasonConnection, locale.Text(locale.ClassifierUnreachable), err)
}

func statusError(status int, body map[string]any) error {
	cause := errors.New("ml api status " + cast.ToString(status))
	if msg := cast.ToString(body["message"]); msg != "" {
		return apperr.Upstream(apperr.ReasonStatus, locale.Textf(locale.ClassifierMessage, msg), cause)
	}
	return apperr.Upstream(apperr.ReasonStatus, locale.Textf(locale.ClassifierStatus, status), cause)
}

// decodeBody liest ein JSON-Objekt; alles andere ergibt eine leere Map.
func decodeBody(raw []byte) map[string]any {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

// parsePrediction liest predicted_class und confidence. Fehlt confidence oder ist sie
// nicht numerisch, gilt 0.0.
func parsePrediction(body map[string]any) *providers.Prediction {
	p := &providers.Prediction{
		Label: cast.ToString(body["predicted_class"]),
	}
	if raw, ok := body["confidence"]; ok && raw != nil {
		if f, err := cast.ToFloat64E(raw); err == nil {
			p.Confidence = f
		}
	}
	return p
}
