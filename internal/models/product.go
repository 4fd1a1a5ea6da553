package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PriceTier is a wholesale discount breakpoint: orders of at least
// MinQuantity units are charged PriceCents per unit.
type PriceTier struct {
	MinQuantity int64 `json:"min_quantity" bson:"min_quantity" binding:"required,min=1"`
	PriceCents  int64 `json:"price_cents" bson:"price_cents" binding:"min=0"`
}

// SizeStock tracks remaining sellable units for one size label.
type SizeStock struct {
	Size      string `json:"size" bson:"size" binding:"required"`
	Inventory int64  `json:"inventory" bson:"inventory" binding:"min=0"`
}

// Specifications holds free-form product attributes used for filtering.
type Specifications struct {
	Material string `json:"material,omitempty" bson:"material,omitempty"`
	Color    string `json:"color,omitempty" bson:"color,omitempty"`
	Style    string `json:"style,omitempty" bson:"style,omitempty"`
	Gender   string `json:"gender,omitempty" bson:"gender,omitempty"`
}

// Product is a catalog entry. Prices are integer cents. Inventory lives
// per size and is mutated only by order reservation and the admin
// inventory endpoint. Deactivation is a soft delete.
type Product struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SKU              string             `json:"sku" bson:"sku" binding:"required"`
	Name             string             `json:"name" bson:"name" binding:"required"`
	Description      string             `json:"description,omitempty" bson:"description,omitempty"`
	Category         primitive.ObjectID `json:"category,omitempty" bson:"category,omitempty"`
	Brand            string             `json:"brand,omitempty" bson:"brand,omitempty"`
	BasePriceCents   int64              `json:"base_price_cents" bson:"base_price_cents" binding:"min=0"`
	Currency         string             `json:"currency" bson:"currency"`
	PriceTiers       []PriceTier        `json:"price_tiers,omitempty" bson:"price_tiers,omitempty"`
	Sizes            []SizeStock        `json:"sizes" bson:"sizes"`
	Specifications   Specifications     `json:"specifications,omitempty" bson:"specifications,omitempty"`
	Images           []string           `json:"images,omitempty" bson:"images,omitempty"`
	MinOrderQuantity int64              `json:"min_order_quantity" bson:"min_order_quantity"`
	Featured         bool               `json:"featured" bson:"featured"`
	IsActive         bool               `json:"is_active" bson:"is_active"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" bson:"updated_at"`
}

// SizeFor returns the stock entry matching the given size label, or nil.
func (p *Product) SizeFor(size string) *SizeStock {
	for i := range p.Sizes {
		if p.Sizes[i].Size == size {
			return &p.Sizes[i]
		}
	}
	return nil
}

// InStock reports whether any size has sellable inventory.
func (p *Product) InStock() bool {
	for i := range p.Sizes {
		if p.Sizes[i].Inventory > 0 {
			return true
		}
	}
	return false
}

// ProductUpdate represents the admin-patchable fields of a product.
type ProductUpdate struct {
	Name             *string         `json:"name,omitempty"`
	Description      *string         `json:"description,omitempty"`
	Category         *string         `json:"category,omitempty"`
	Brand            *string         `json:"brand,omitempty"`
	BasePriceCents   *int64          `json:"base_price_cents,omitempty"`
	Currency         *string         `json:"currency,omitempty"`
	Specifications   *Specifications `json:"specifications,omitempty"`
	Images           []string        `json:"images,omitempty"`
	MinOrderQuantity *int64          `json:"min_order_quantity,omitempty"`
	Featured         *bool           `json:"featured,omitempty"`
	IsActive         *bool           `json:"is_active,omitempty"`
}

// ProductFilter carries the parsed catalog query parameters.
// Zero values mean "not filtered"; IsActive defaults to true when nil.
type ProductFilter struct {
	Category      string
	Brand         string
	MinPriceCents int64
	MaxPriceCents int64
	Search        string
	Color         string
	Material      string
	Style         string
	InStock       *bool
	IsActive      *bool
	Featured      *bool
	SortBy        string
	SortOrder     string
	Page          int
	Limit         int
}

// Pagination is the page metadata returned alongside every list response.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int64 `json:"pages"`
	Total   int64 `json:"total"`
	PerPage int   `json:"perPage"`
}

// NewPagination computes page metadata from a total match count.
func NewPagination(page, limit int, total int64) Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Pagination{Current: page, Pages: pages, Total: total, PerPage: limit}
}
