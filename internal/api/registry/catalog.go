package registry

import (
	"gorm.io/gorm/schema"

	"scopedrest/internal/models"
)

// Catalog registers the resources served by the default deployment.
func Catalog(namer schema.Namer) (*Registry, error) {
	r := New(namer)

	if err := Register[models.Widget](r, "widgets",
		WithDefaultSort("-created_at"),
		WithMethod("display_name", func(w *models.Widget) any { return w.DisplayName() }),
	); err != nil {
		return nil, err
	}
	if err := Register[models.Category](r, "categories", WithDefaultSort("name")); err != nil {
		return nil, err
	}
	if err := Register[models.Part](r, "parts", WithDefaultSort("sku")); err != nil {
		return nil, err
	}
	if err := Register[models.Tag](r, "tags", WithDefaultSort("name"), WithPerPage(50)); err != nil {
		return nil, err
	}
	return r, nil
}
