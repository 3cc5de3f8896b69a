package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DemoCatalog holds the rows created by SeedDemoCatalog, keyed by name.
type DemoCatalog struct {
	Categories map[string]*Category
	Widgets    map[string]*Widget
	Parts      map[string]*Part
	Tags       map[string]*Tag
}

type demoWidget struct {
	name     string
	status   string
	price    float64
	quantity int
	featured bool
	notes    *string
	category string
	tags     []string
	deleted  bool
}

func strPtr(s string) *string { return &s }

var demoWidgets = []demoWidget{
	{"Bolt", "open", 1.5, 10, true, strPtr("zinc plated"), "hardware", []string{"metal", "small"}, false},
	{"Nut", "open", 0.5, 100, false, nil, "hardware", []string{"metal", "small"}, false},
	{"Screw", "closed", 0.75, 50, false, nil, "hardware", nil, false},
	{"Washer", "open", 0.25, 0, false, strPtr(""), "hardware", nil, false},
	{"Gear", "closed", 12, 5, true, nil, "hardware", []string{"metal", "premium"}, false},
	{"Spring", "open", 3, 7, false, nil, "software", nil, false},
	{"Lever", "draft", 8, 2, false, nil, "software", nil, false},
	{"Pulley", "open", 20, 1, true, nil, "", []string{"premium"}, false},
	{"Ghost", "open", 99, 1, true, nil, "hardware", []string{"metal"}, true},
}

var demoParts = []struct{ widget, name, sku string }{
	{"Bolt", "Thread", "B-1"},
	{"Bolt", "Head", "B-2"},
	{"Gear", "Tooth", "G-1"},
	{"Pulley", "Wheel", "P-1"},
	{"Ghost", "Shade", "X-1"},
}

// SeedDemoCatalog inserts a small fixed catalog in one transaction. Rows are
// created a minute apart starting at epoch, in declaration order.
func SeedDemoCatalog(db *gorm.DB, epoch time.Time) (*DemoCatalog, error) {
	c := &DemoCatalog{
		Categories: map[string]*Category{},
		Widgets:    map[string]*Widget{},
		Parts:      map[string]*Part{},
		Tags:       map[string]*Tag{},
	}
	tick := 0
	stamp := func(b *Base) {
		b.CreatedAt = epoch.Add(time.Duration(tick) * time.Minute)
		b.UpdatedAt = b.CreatedAt
		tick++
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, name := range []string{"Hardware", "Software"} {
			cat := &Category{Name: name, Slug: lower(name)}
			stamp(&cat.Base)
			if err := tx.Create(cat).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", name, err)
			}
			c.Categories[cat.Slug] = cat
		}

		for _, name := range []string{"metal", "small", "premium"} {
			tag := &Tag{Name: name}
			stamp(&tag.Base)
			if err := tx.Create(tag).Error; err != nil {
				return fmt.Errorf("failed to create tag %s: %w", name, err)
			}
			c.Tags[name] = tag
		}

		for _, d := range demoWidgets {
			w := &Widget{
				Name:      d.name,
				Status:    d.status,
				Price:     d.price,
				Quantity:  d.quantity,
				Featured:  d.featured,
				Notes:     d.notes,
				CostPrice: d.price / 2,
			}
			if cat, ok := c.Categories[d.category]; ok {
				w.CategoryID = &cat.ID
			}
			for _, t := range d.tags {
				w.Tags = append(w.Tags, *c.Tags[t])
			}
			w.IsDeleted = d.deleted
			if d.deleted {
				now := epoch
				w.DeletedAt = &now
			}
			stamp(&w.Base)
			if err := tx.Omit("Tags.*").Create(w).Error; err != nil {
				return fmt.Errorf("failed to create widget %s: %w", d.name, err)
			}
			c.Widgets[d.name] = w
		}

		for _, d := range demoParts {
			p := &Part{Name: d.name, SKU: d.sku, WidgetID: c.Widgets[d.widget].ID}
			stamp(&p.Base)
			if err := tx.Create(p).Error; err != nil {
				return fmt.Errorf("failed to create part %s: %w", d.name, err)
			}
			c.Parts[d.name] = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func lower(s string) string {
	b := []byte(s)
	for i, ch := range b {
		if ch >= 'A' && ch <= 'Z' {
			b[i] = ch + 'a' - 'A'
		}
	}
	return string(b)
}
