package models

import "fmt"

// Catalog models are the resources exposed by the default deployment.

type Category struct {
	Base
	Name    string   `gorm:"not null" json:"name"`
	Slug    string   `gorm:"uniqueIndex" json:"slug"`
	Widgets []Widget `json:"widgets,omitempty"`
}

type Widget struct {
	Base
	Name       string    `gorm:"not null" json:"name"`
	Status     string    `gorm:"index;not null;default:draft" json:"status"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Featured   bool      `json:"featured"`
	Notes      *string   `json:"notes"`
	CostPrice  float64   `json:"costPrice"`
	CategoryID *string   `gorm:"type:uuid;index" json:"categoryId"`
	Category   *Category `json:"category,omitempty"`
	Parts      []Part    `json:"parts,omitempty"`
	Tags       []Tag     `gorm:"many2many:widget_tags" json:"tags,omitempty"`
}

// DisplayName is exposed as the display_name method.
func (w *Widget) DisplayName() string {
	return fmt.Sprintf("%s (%s)", w.Name, w.Status)
}

type Part struct {
	Base
	Name     string `gorm:"not null" json:"name"`
	SKU      string `gorm:"index" json:"sku"`
	WidgetID string `gorm:"type:uuid;index;not null" json:"widgetId"`
}

type Tag struct {
	Base
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}
