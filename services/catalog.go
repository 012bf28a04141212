package services

import (
	"context"
	"errors"
	"strings"

	"medivize/apperr"
	"medivize/locale"
	"medivize/metrics"
	"medivize/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Spalten, die in handgeschriebenen Bedingungen vorkommen. clause.Column sorgt für
// korrektes Quoting in MySQL, PostgreSQL und SQLite. Groß-/Kleinschreibung wird immer
// auf beiden Seiten von der Datenbank gefaltet, damit Spalte und Suchwert gleich behandelt werden.
var (
	colName    = clause.Column{Name: "Name"}
	colType    = clause.Column{Name: "Type"}
	colPurpose = clause.Column{Name: "Kegunaan"}
	byName     = clause.OrderByColumn{Column: colName}
)

// CatalogService kapselt alle Lese- und Schreibzugriffe auf die Tabelle "drugs".
// Jede Operation ist eine einzelne Anfrage bzw. eine Folge einzelner Anfragen ohne Transaktion.
type CatalogService struct {
	DB      *gorm.DB
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// NewCatalogService erstellt eine neue Instanz des CatalogService.
func NewCatalogService(db *gorm.DB, logger *zap.Logger, m *metrics.Metrics) *CatalogService {
	return &CatalogService{DB: db, Logger: logger, Metrics: m}
}

// List liefert alle Medikamente, sortiert nach Name.
func (s *CatalogService) List(ctx context.Context) ([]models.DrugRecord, error) {
	var drugs []models.Drug
	if err := s.DB.WithContext(ctx).Order(byName).Find(&drugs).Error; err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, locale.Text(locale.ListFailed), err)
	}
	return records(drugs), nil
}

// GetByName sucht zuerst einen exakten Treffer (ohne Groß-/Kleinschreibung) und erst
// danach einen Teilstring-Treffer.
func (s *CatalogService) GetByName(ctx context.Context, name string) (*models.DrugRecord, error) {
	var drug models.Drug
	err := s.DB.WithContext(ctx).
		Where("LOWER(?) = LOWER(?)", colName, name).
		Order(byName).
		Take(&drug).Error
	if err == nil {
		rec := drug.Record()
		return &rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.StorageFailure, locale.Text(locale.GetFailed), err)
	}

	return s.FindByNameLike(ctx, name)
}

// FindByNameLike liefert das erste Medikament, dessen Name name als Teilstring enthält.
func (s *CatalogService) FindByNameLike(ctx context.Context, name string) (*models.DrugRecord, error) {
	var drug models.Drug
	err := s.DB.WithContext(ctx).
		Where("LOWER(?) LIKE LOWER(?)", colName, containsPattern(name)).
		Order(byName).
		Take(&drug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.NotFound, locale.Text(locale.DrugNotFound))
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, locale.Text(locale.GetFailed), err)
	}
	rec := drug.Record()
	return &rec, nil
}

// Search durchsucht Name, Typ und Kegunaan nach query.
func (s *CatalogService) Search(ctx context.Context, query string) ([]models.DrugRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.InvalidArgument, locale.Text(locale.SearchQueryEmpty))
	}
	pattern := containsPattern(query)
	var drugs []models.Drug
	err := s.DB.WithContext(ctx).
		Where("LOWER(?) LIKE LOWER(?) OR LOWER(?) LIKE LOWER(?) OR LOWER(?) LIKE LOWER(?)",
			colName, pattern, colType, pattern, colPurpose, pattern).
		Order(byName).
		Find(&drugs).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.StorageFailure, locale.Text(locale.SearchFailed), err)
	}
	return records(drugs), nil
}

// Create legt ein neues Medikament an und gibt dessen Namen zurück.
func (s *CatalogService) Create(ctx context.Context, in models.DrugInput) (string, error) {
	name := models.StringValue(in.Name)
	if name == "" || models.StringValue(in.Purpose) == "" || models.StringValue(in.Dosage) == "" {
		return "", apperr.New(apperr.InvalidArgument, locale.Text(locale.CreateMissingFields))
	}

	exists, err := s.exists(ctx, name)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, locale.Text(locale.CreateFailed), err)
	}
	if exists {
		return "", apperr.New(apperr.Conflict, locale.Text(locale.CreateConflict))
	}

	drug := models.Drug{
		Name:        name,
		Size:        models.StringValue(in.Size),
		Type:        models.StringValue(in.Type),
		Purpose:     models.StringValue(in.Purpose),
		Dosage:      models.StringValue(in.Dosage),
		HowToUse:    models.StringValue(in.HowToUse),
		SideEffects: in.SideEffects.Value,
		Warnings:    models.StringValue(in.Warnings),
	}
	if err := s.DB.WithContext(ctx).Create(&drug).Error; err != nil {
		// Zwei gleichzeitige Creates können beide die Prüfung oben passieren; der Unique-Index entscheidet.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", apperr.Wrap(apperr.Conflict, locale.Text(locale.CreateConflict), err)
		}
		return "", apperr.Wrap(apperr.StorageFailure, locale.Text(locale.CreateFailed), err)
	}

	s.Logger.Info("Drug created", zap.String("name", name))
	s.Metrics.CatalogMutation("create")
	return name, nil
}

// UpdateByName überschreibt die komplette Zeile von current. Nicht mitgesendete Felder
// behalten ihren bisherigen Wert, ausgenommen sideEffects: fehlt das Feld, wird es geleert.
func (s *CatalogService) UpdateByName(ctx context.Context, current string, in models.DrugInput) error {
	var existing models.Drug
	err := s.DB.WithContext(ctx).Where("? = ?", colName, current).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.NotFound, locale.Text(locale.UpdateNotFound))
	}
	if err != nil {
		return apperr.Wrap(apperr.StorageFailure, locale.Text(locale.UpdateFailed), err)
	}

	newName := models.StringValue(in.NewName)
	if newName != "" && newName != current {
		taken, err := s.exists(ctx, newName)
		if err != nil {
			return apperr.Wrap(apperr.StorageFailure, locale.Text(locale.UpdateFailed), err)
		}
		if taken {
			return apperr.New(apperr.Conflict, locale.Text(locale.UpdateConflict))
		}
	}
	finalName := current
	if newName != "" {
		finalName = newName
	}

	updates := map[string]any{
		"Name":               finalName,
		"Size":               valueOr(in.Size, existing.Size),
		"Type":               valueOr(in.Type, existing.Type),
		"Kegunaan":           valueOr(in.Purpose, existing.Purpose),
		"Dosis":              valueOr(in.Dosage, existing.Dosage),
		"Cara Penggunaan":    valueOr(in.HowToUse, existing.HowToUse),
		"Efek Samping":       in.SideEffects.Value,
		"Peringatan Penting": valueOr(in.Warnings, existing.Warnings),
	}
	err = s.DB.WithContext(ctx).
		Model(&models.Drug{}).
		Where("? = ?", colName, current).
		Updates(updates).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(apperr.Conflict, locale.Text(locale.UpdateConflict), err)
		}
		return apperr.Wrap(apperr.StorageFailure, locale.Text(locale.UpdateFailed), err)
	}

	s.Logger.Info("Drug updated", zap.String("name", current), zap.String("final_name", finalName))
	s.Metrics.CatalogMutation("update")
	return nil
}

// DeleteByName löscht das Medikament mit exakt diesem Namen.
func (s *CatalogService) DeleteByName(ctx context.Context, name string) error {
	res := s.DB.WithContext(ctx).Where("? = ?", colName, name).Delete(&models.Drug{})
	if res.Error != nil {
		return apperr.Wrap(apperr.StorageFailure, locale.Text(locale.DeleteFailed), res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, locale.Text(locale.DeleteNotFound))
	}
	s.Logger.Info("Drug deleted", zap.String("name", name))
	s.Metrics.CatalogMutation("delete")
	return nil
}

// exists prüft case-sensitiv, ob ein Medikament mit exakt diesem Namen existiert.
func (s *CatalogService) exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Drug{}).Where("? = ?", colName, name).Count(&count).Error
	return count > 0, err
}

func records(drugs []models.Drug) []models.DrugRecord {
	out := make([]models.DrugRecord, 0, len(drugs))
	for _, d := range drugs {
		out = append(out, d.Record())
	}
	return out
}

func containsPattern(s string) string {
	return "%" + s + "%"
}

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
