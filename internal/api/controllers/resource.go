package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"scopedrest/internal/api/middleware"
	"scopedrest/internal/api/registry"
	"scopedrest/internal/api/validator"
	"scopedrest/internal/apierr"
	"scopedrest/internal/filter"
	"scopedrest/internal/guard"
	"scopedrest/internal/metrics"
	"scopedrest/internal/models"
	"scopedrest/internal/pagination"
	"scopedrest/internal/policy"
	"scopedrest/internal/query"
	console "scopedrest/internal/utils/logger"
)

var log = console.New("RESOURCES")

// Deps is what ResourceController needs from the rest of the process.
type Deps struct {
	Registry   *registry.Registry
	Authorizer *policy.Authorizer
	Compiler   *query.Compiler
	Engine     *pagination.Engine
	Guard      *guard.Guard
	// PublicURL, when set, replaces the request's scheme and host in page links.
	PublicURL string
}

// ResourceController serves every registered resource read-only.
type ResourceController struct {
	deps      Deps
	publicURL *url.URL
}

func NewResourceController(deps Deps) (*ResourceController, error) {
	rc := &ResourceController{deps: deps}
	if deps.PublicURL != "" {
		u, err := url.Parse(deps.PublicURL)
		if err != nil {
			return nil, log.Error("invalid public url %q", err, deps.PublicURL)
		}
		rc.publicURL = u
	}
	return rc, nil
}

// request is the resolved, authorized part of a call.
type request struct {
	params validator.ListParams
	key    *models.APIKey
	action string
	res    *registry.Resource
	scope  *policy.Scope
}

// List godoc
// @Summary List records of a resource
// @Description Paginated, filtered and projected listing limited to the caller's scope
// @Produce json
// @Param resource path string true "Resource name"
// @Param q query string false "Filter expression, JSON or flat form"
// @Param select query string false "Comma-separated columns"
// @Param include query string false "Comma-separated associations and computed fields"
// @Param sort query string false "Comma-separated columns, - prefix for descending"
// @Param order query string false "Default direction (asc or desc)"
// @Param page query int false "Page number, 1-indexed"
// @Param per_page query int false "Page size"
// @Success 200 {object} pagination.Page
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /{resource} [get]
func (rc *ResourceController) List(c echo.Context) error {
	r, err := rc.begin(c)
	if err != nil {
		return err
	}

	flt, err := rc.filter(r.params.Q)
	if err != nil {
		return err
	}

	plan, err := rc.deps.Compiler.Compile(query.Input{
		Scope:      r.scope,
		Filter:     flt,
		Projection: r.scope.Project(r.params.SelectNames(), r.params.IncludeNames()),
		Sort:       r.params.Sort,
		Order:      r.params.Order,
		Page:       r.params.Page,
		PerPage:    r.params.PerPage,
	})
	if err != nil {
		return apierr.Internal(log.Error("failed to compile %s listing", err, r.res.Name))
	}

	page, err := rc.deps.Engine.Execute(c.Request().Context(), plan, rc.requestURL(c))
	if err != nil {
		return apierr.Internal(log.Error("failed to list %s", err, r.res.Name))
	}
	return c.JSON(http.StatusOK, page)
}

// Show godoc
// @Summary Show one record
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Record id"
// @Param select query string false "Comma-separated columns"
// @Param include query string false "Comma-separated associations and computed fields"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /{resource}/{id} [get]
func (rc *ResourceController) Show(c echo.Context) error {
	r, err := rc.begin(c)
	if err != nil {
		return err
	}

	id, err := r.res.ParseID(r.params.ID)
	if err != nil {
		return apierr.BadRequest("invalid id")
	}

	flt, err := rc.filter("")
	if err != nil {
		return err
	}
	plan, err := rc.deps.Compiler.Compile(query.Input{
		Scope:      r.scope,
		Filter:     flt,
		Projection: r.scope.Project(r.params.SelectNames(), r.params.IncludeNames()),
		ID:         id,
	})
	if err != nil {
		return apierr.Internal(log.Error("failed to compile %s lookup", err, r.res.Name))
	}

	record, err := rc.deps.Engine.First(c.Request().Context(), plan)
	if err != nil {
		return recordError(r.res, err)
	}
	return c.JSON(http.StatusOK, record)
}

// NestedList godoc
// @Summary List the records associated with one record
// @Description The parent must be visible to the caller; the listing is limited to the caller's scope on the associated resource
// @Produce json
// @Param resource path string true "Resource name"
// @Param id path string true "Parent record id"
// @Param nested path string true "Association name"
// @Param q query string false "Filter expression, JSON or flat form"
// @Param page query int false "Page number, 1-indexed"
// @Param per_page query int false "Page size"
// @Success 200 {object} pagination.Page
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security BearerAuth
// @Router /{resource}/{id}/{nested} [get]
func (rc *ResourceController) NestedList(c echo.Context) error {
	r, err := rc.begin(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	assoc, err := r.res.Nested(r.params.Nested)
	if err != nil {
		return resolveError(err)
	}
	if _, ok := r.scope.Association(assoc.Name); !ok {
		metrics.RecordAuthorizationDenial(r.res.Name)
		return apierr.Forbidden("association not permitted")
	}

	id, err := r.res.ParseID(r.params.ID)
	if err != nil {
		return apierr.BadRequest("invalid id")
	}

	parent, err := rc.locate(ctx, r.scope, id)
	if err != nil {
		return recordError(r.res, err)
	}
	constraint, err := query.ParentOf(ctx, assoc, parent)
	if err != nil {
		return apierr.Internal(log.Error("failed to constrain %s of %s", err, assoc.Name, r.res.Name))
	}

	target, err := rc.scope(ctx, r.key, assoc.Target, r.action)
	if err != nil {
		return err
	}

	flt, err := rc.filter(r.params.Q)
	if err != nil {
		return err
	}
	plan, err := rc.deps.Compiler.Compile(query.Input{
		Scope:      target,
		Filter:     flt,
		Projection: target.Project(r.params.SelectNames(), r.params.IncludeNames()),
		Sort:       r.params.Sort,
		Order:      r.params.Order,
		Page:       r.params.Page,
		PerPage:    r.params.PerPage,
		Parent:     constraint,
	})
	if err != nil {
		return apierr.Internal(log.Error("failed to compile %s listing", err, assoc.Target.Name))
	}

	page, err := rc.deps.Engine.Execute(ctx, plan, rc.requestURL(c))
	if err != nil {
		return apierr.Internal(log.Error("failed to list %s", err, assoc.Target.Name))
	}
	return c.JSON(http.StatusOK, page)
}

// begin binds the parameters, resolves the resource and computes the
// caller's scope on it.
func (rc *ResourceController) begin(c echo.Context) (*request, error) {
	r := &request{}
	if err := c.Bind(&r.params); err != nil {
		return nil, apierr.BadRequest("invalid request parameters")
	}
	if err := c.Validate(&r.params); err != nil {
		return nil, err
	}

	key, ok := middleware.IdentityFrom(c)
	if !ok {
		return nil, apierr.Unauthorized("missing identity")
	}
	r.key = key

	action, ok := middleware.ActionForMethod(c.Request().Method)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusMethodNotAllowed)
	}
	r.action = action

	res, err := rc.deps.Registry.Resolve(r.params.Resource)
	if err != nil {
		return nil, resolveError(err)
	}
	r.res = res

	r.scope, err = rc.scope(c.Request().Context(), key, res, action)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (rc *ResourceController) scope(ctx context.Context, key *models.APIKey, res *registry.Resource, action string) (*policy.Scope, error) {
	s, err := rc.deps.Authorizer.Scope(ctx, key, res, action)
	if errors.Is(err, policy.ErrForbidden) {
		metrics.RecordAuthorizationDenial(res.Name)
		return nil, apierr.Forbidden("access to " + res.Name + " is not permitted")
	}
	if err != nil {
		return nil, apierr.Internal(log.Error("failed to compute scope on %s", err, res.Name))
	}
	return s, nil
}

// locate loads the parent of a nested listing through the caller's scope.
func (rc *ResourceController) locate(ctx context.Context, s *policy.Scope, id any) (any, error) {
	flt, err := rc.filter("")
	if err != nil {
		return nil, err
	}
	plan, err := rc.deps.Compiler.Compile(query.Input{
		Scope:      s,
		Filter:     flt,
		Projection: s.Project(nil, nil),
		ID:         id,
	})
	if err != nil {
		return nil, err
	}
	return rc.deps.Engine.Locate(ctx, plan)
}

func (rc *ResourceController) filter(raw string) (query.Filter, error) {
	flt, err := query.ValidateFilter(rc.deps.Guard, filter.Parse(raw))
	if err != nil {
		return query.Filter{}, apierr.BadRequest("request rejected")
	}
	return flt, nil
}

// requestURL is the absolute URL page links are derived from.
func (rc *ResourceController) requestURL(c echo.Context) *url.URL {
	req := c.Request()
	u := *req.URL
	if rc.publicURL != nil {
		u.Scheme = rc.publicURL.Scheme
		u.Host = rc.publicURL.Host
	} else {
		u.Scheme = c.Scheme()
		u.Host = req.Host
	}
	return &u
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, registry.ErrInvalidName):
		return apierr.BadRequest("malformed resource name")
	case errors.Is(err, registry.ErrUnknownResource):
		return apierr.NotFound("unknown resource")
	case errors.Is(err, registry.ErrUnknownAssociation):
		return apierr.NotFound("unknown association")
	default:
		return apierr.Internal(err)
	}
}

func recordError(res *registry.Resource, err error) error {
	switch {
	case errors.Is(err, pagination.ErrNotFound):
		return apierr.NotFound(res.Name + " not found")
	case errors.Is(err, pagination.ErrHidden):
		metrics.RecordAuthorizationDenial(res.Name)
		return apierr.Forbidden("access to this record is not permitted")
	case errors.As(err, new(*apierr.Error)):
		return err
	default:
		return apierr.Internal(log.Error("failed to load %s", err, res.Name))
	}
}
