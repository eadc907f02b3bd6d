package domain

import (
	"strings"
)

// Dimension is one axis of pricing scope.
type Dimension string

const (
	DimensionService        Dimension = "service"
	DimensionLanguagePair   Dimension = "language_pair"
	DimensionSpecialization Dimension = "specialization"
)

// Dimensions lists every dimension in the order checks run.
var Dimensions = []Dimension{
	DimensionService,
	DimensionLanguagePair,
	DimensionSpecialization,
}

// ParseDimension accepts the singular name or the plural route form
// ("services", "language-pairs").
func ParseDimension(value string) (Dimension, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
	normalized = strings.TrimSuffix(normalized, "s")
	switch Dimension(normalized) {
	case DimensionService:
		return DimensionService, nil
	case DimensionLanguagePair:
		return DimensionLanguagePair, nil
	case DimensionSpecialization:
		return DimensionSpecialization, nil
	default:
		return "", ErrInvalidDimension
	}
}

func (d Dimension) String() string { return string(d) }

// Column is the value column shared by registry and price list tables.
func (d Dimension) Column() string { return string(d) + "_id" }

// Table is the scope registry table of d for a party kind, e.g. vendor_services.
func (d Dimension) Table(kind Kind) string { return string(kind) + "_" + string(d) + "s" }

// CatalogTable is the tenant reference table the values of d live in.
func (d Dimension) CatalogTable() string { return string(d) + "s" }
