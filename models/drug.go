package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// sideEffectsSeparator wird beim Speichern einer Nebenwirkungsliste verwendet.
const sideEffectsSeparator = ", "

// Drug repräsentiert eine Zeile der Referenztabelle "drugs".
// Die Spaltennamen entsprechen dem bestehenden Schema der MEDIVIZE-Datenbank.
type Drug struct {
	Name        string `gorm:"column:Name;size:191;uniqueIndex;not null"`
	Size        string `gorm:"column:Size"`
	Type        string `gorm:"column:Type"`
	Purpose     string `gorm:"column:Kegunaan;type:text"`
	Dosage      string `gorm:"column:Dosis;type:text"`
	HowToUse    string `gorm:"column:Cara Penggunaan;type:text"`
	SideEffects string `gorm:"column:Efek Samping;type:text"`
	Warnings    string `gorm:"column:Peringatan Penting;type:text"`
}

// TableName gibt explizit den Tabellennamen an.
func (Drug) TableName() string {
	return "drugs"
}

// DrugRecord ist die API-Darstellung eines Medikaments.
type DrugRecord struct {
	Name        string   `json:"name"`
	Size        string   `json:"size"`
	Type        string   `json:"type"`
	Purpose     string   `json:"purpose"`
	Dosage      string   `json:"dosage"`
	HowToUse    string   `json:"howToUse"`
	SideEffects []string `json:"sideEffects"`
	Warnings    string   `json:"warnings"`
}

// Record wandelt die Tabellenzeile in die API-Darstellung um.
func (d Drug) Record() DrugRecord {
	return DrugRecord{
		Name:        d.Name,
		Size:        d.Size,
		Type:        d.Type,
		Purpose:     d.Purpose,
		Dosage:      d.Dosage,
		HowToUse:    d.HowToUse,
		SideEffects: SplitSideEffects(d.SideEffects),
		Warnings:    d.Warnings,
	}
}

// SplitSideEffects zerlegt die gespeicherte Nebenwirkungsspalte an Kommas.
// Leere Elemente bleiben erhalten, ein leerer Wert ergibt eine leere Liste.
func SplitSideEffects(stored string) []string {
	if stored == "" {
		return []string{}
	}
	parts := strings.Split(stored, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// JoinSideEffects erzeugt die kanonische Speicherform einer Nebenwirkungsliste.
func JoinSideEffects(list []string) string {
	return strings.Join(list, sideEffectsSeparator)
}

// SideEffectsInput nimmt Nebenwirkungen entweder als Liste oder als Rohtext entgegen.
// Set ist true, sobald das Feld im Request vorkam.
type SideEffectsInput struct {
	Set   bool
	Value string
}

// UnmarshalJSON akzeptiert Liste, Skalar oder null.
func (s *SideEffectsInput) UnmarshalJSON(data []byte) error {
	s.Set = true
	s.Value = ""
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = cast.ToString(item)
		}
		s.Value = JoinSideEffects(items)
	default:
		s.Value = cast.ToString(v)
	}
	return nil
}

// DrugInput enthält die Felder eines Create- oder Update-Requests.
// Nil bedeutet "nicht mitgesendet".
type DrugInput struct {
	Name        *string          `json:"name"`
	NewName     *string          `json:"newName"`
	Size        *string          `json:"size"`
	Type        *string          `json:"type"`
	Purpose     *string          `json:"purpose"`
	Dosage      *string          `json:"dosage"`
	HowToUse    *string          `json:"howToUse"`
	SideEffects SideEffectsInput `json:"sideEffects"`
	Warnings    *string          `json:"warnings"`
}

// StringValue gibt den Wert von p oder "" zurück.
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
