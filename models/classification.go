package models

import "time"

// TimestampLayout entspricht Date.prototype.toISOString (Millisekunden, UTC).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp formatiert t in UTC nach TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ClassificationResult ist das Ergebnis einer Bildklassifikation. Es wird nicht gespeichert.
type ClassificationResult struct {
	DrugName    string      `json:"drugName"`
	Confidence  float64     `json:"confidence"`
	ImageURL    string      `json:"imageUrl"`
	ProcessedAt string      `json:"processedAt"`
	DrugDetails *DrugRecord `json:"drugDetails"`
}
