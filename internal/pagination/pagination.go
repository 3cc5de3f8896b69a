// Package pagination executes compiled plans: it counts the scoped query,
// loads one page of it and renders the rows.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"scopedrest/internal/metrics"
	"scopedrest/internal/query"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrHidden means the record exists but the scope does not show it.
	ErrHidden = errors.New("record not visible")
)

// Page is one page of a listing and its metadata.
type Page struct {
	Data         []*Record `json:"data"`
	Total        int64     `json:"total"`
	TotalPages   int       `json:"total_pages"`
	Page         int       `json:"page"`
	PerPage      int       `json:"per_page"`
	Offset       int       `json:"offset"`
	LastPage     bool      `json:"last_page"`
	OutOfBounds  bool      `json:"out_of_bounds"`
	NextPage     *string   `json:"next_page"`
	PreviousPage *string   `json:"previous_page"`
}

type Engine struct {
	db *gorm.DB
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Execute runs a listing plan. requestURL is the absolute URL of the
// request; page links are built from it.
func (e *Engine) Execute(ctx context.Context, p *query.Plan, requestURL *url.URL) (*Page, error) {
	res := p.Resource()

	start := time.Now()
	var total int64
	err := where(e.db.WithContext(ctx).Model(res.Model()), p.Where()).Count(&total).Error
	metrics.ObserveQuery(res.Name, "count", start)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", res.Name, err)
	}

	page := newPage(total, p.Page(), p.PerPage(), requestURL)
	if page.OutOfBounds || total == 0 {
		return page, nil
	}

	start = time.Now()
	dest := res.NewSlice()
	err = e.find(ctx, p).Offset(p.Offset()).Limit(p.PerPage()).Find(dest).Error
	metrics.ObserveQuery(res.Name, "find", start)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", res.Name, err)
	}

	r := renderer{ctx: ctx, plan: p}
	rows := reflect.ValueOf(dest).Elem()
	page.Data = make([]*Record, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		page.Data = append(page.Data, r.record(rows.Index(i)))
	}
	return page, nil
}

// First renders the single record a show plan selects.
func (e *Engine) First(ctx context.Context, p *query.Plan) (*Record, error) {
	res := p.Resource()
	dest := res.Model()

	start := time.Now()
	err := e.find(ctx, p).Take(dest).Error
	metrics.ObserveQuery(res.Name, "find", start)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, e.missing(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", res.Name, err)
	}
	return renderer{ctx: ctx, plan: p}.record(reflect.ValueOf(dest).Elem()), nil
}

// Locate loads the full model a show plan selects, for use as a nested
// listing's parent. Nothing is projected; the result is not for rendering.
func (e *Engine) Locate(ctx context.Context, p *query.Plan) (any, error) {
	res := p.Resource()
	dest := res.Model()

	start := time.Now()
	err := where(e.db.WithContext(ctx).Model(res.Model()), p.Where()).Take(dest).Error
	metrics.ObserveQuery(res.Name, "locate", start)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, e.missing(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", res.Name, err)
	}
	return dest, nil
}

// missing tells an absent record from one the scope hides.
func (e *Engine) missing(ctx context.Context, p *query.Plan) error {
	var n int64
	if err := where(e.db.WithContext(ctx).Model(p.Resource().Model()), p.KeyWhere()).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count %s: %w", p.Resource().Name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrHidden
}

func (e *Engine) find(ctx context.Context, p *query.Plan) *gorm.DB {
	res := p.Resource()
	tx := where(e.db.WithContext(ctx).Model(res.Model()), p.Where()).
		Select(p.Fetch()).
		Clauses(clause.OrderBy{Columns: p.Order()})

	for _, inc := range p.Includes() {
		inc := inc
		tx = tx.Preload(inc.Field, func(db *gorm.DB) *gorm.DB {
			db = where(db.Select(inc.Fetch), inc.Where)
			return db.Order(clause.OrderByColumn{Column: clause.Column{Table: inc.Target.Table(), Name: inc.Target.PrimaryKey().DBName}})
		})
	}
	return tx
}

func where(tx *gorm.DB, exprs []clause.Expression) *gorm.DB {
	if len(exprs) == 0 {
		return tx
	}
	return tx.Clauses(clause.Where{Exprs: exprs})
}

func newPage(total int64, page, perPage int, requestURL *url.URL) *Page {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	p := &Page{
		Data:        []*Record{},
		Total:       total,
		TotalPages:  totalPages,
		Page:        page,
		PerPage:     perPage,
		Offset:      (page - 1) * perPage,
		LastPage:    page == totalPages,
		OutOfBounds: page > totalPages,
	}
	if requestURL == nil {
		return p
	}
	if page < totalPages {
		next := pageURL(requestURL, page+1)
		p.NextPage = &next
	}
	// Past the end, previous points back at the last real page.
	prevPage := min(page-1, totalPages)
	if prevPage >= 1 {
		prev := pageURL(requestURL, prevPage)
		p.PreviousPage = &prev
	}
	return p
}
