package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Property is a farm or plot the other records may refer to.
type Property struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Location string          `json:"location,omitempty"`
	Area     decimal.Decimal `json:"area"`
	SoilType string          `json:"soilType,omitempty"`
	Owner    string          `json:"owner,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

func (p Property) RecordID() string { return p.ID }

func (p Property) WithID(id string) Property {
	p.ID = id
	return p
}

func (p Property) Normalize(time.Time) Property {
	p.Name = strings.TrimSpace(p.Name)
	return p
}
