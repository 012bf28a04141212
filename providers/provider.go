package providers

import "context"

// Prediction ist die normalisierte Antwort eines Klassifikators.
// Label ist leer, wenn der Klassifikator keine Klasse geliefert hat.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier ist das Interface, das jeder Bildklassifikator (z.B. die MEDIVIZE ML API) implementieren muss.
type Classifier interface {
	// Predict sendet das Bild an den Klassifikator. Fehler sind *apperr.Error mit Kind UpstreamUnavailable.
	Predict(ctx context.Context, image []byte, filename string) (*Prediction, error)

	// Name gibt den eindeutigen Namen des Klassifikators zurück.
	Name() string
}
