package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CropPlanned   = "planned"
	CropPlanted   = "planted"
	CropGrowing   = "growing"
	CropHarvested = "harvested"
)

// Crop is a planting on a property.
type Crop struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Variety         string          `json:"variety,omitempty"`
	Area            decimal.Decimal `json:"area"`
	PlantingDate    string          `json:"plantingDate,omitempty"`
	ExpectedHarvest string          `json:"expectedHarvest,omitempty"`
	Status          string          `json:"status"`
	PropertyID      string          `json:"propertyId,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

func (c Crop) RecordID() string { return c.ID }

func (c Crop) WithID(id string) Crop {
	c.ID = id
	return c
}

func (c Crop) Normalize(time.Time) Crop {
	c.Name = strings.TrimSpace(c.Name)
	if c.Status == "" {
		c.Status = CropPlanned
	}
	return c
}
