package models

import "time"

// PresetCategory buckets presets for the storefront filters.
type PresetCategory string

const (
	CategoryPremium PresetCategory = "Premium"
	CategoryFree    PresetCategory = "Free"
)

// Preset represents a downloadable photo preset in the catalog.
type Preset struct {
	ID          string         `json:"id"`
	Slug        string         `json:"slug"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Category    PresetCategory `json:"category"`
	// PriceCents is zero for free presets. The storefront formats it;
	// no payment is ever processed against it.
	PriceCents int       `json:"priceCents"`
	Rating     float64   `json:"rating"`
	Downloads  int64     `json:"downloads"`
	Tags       []string  `json:"tags"`
	ImageURL   string    `json:"imageUrl"`
	Featured   bool      `json:"featured"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsFree reports whether the preset may be downloaded without purchase.
func (p Preset) IsFree() bool {
	return p.Category == CategoryFree || p.PriceCents == 0
}
