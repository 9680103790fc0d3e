package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TechnologyService defines the technology operations used by the handler
type TechnologyService interface {
	// Method List retrieves technologies matching the filter; only root technologies
	// unless the filter includes children.
	List(ctx context.Context, filter models.TechnologyFilter) ([]models.AssetTechnology, error)
	// Method Update applies the non-nil fields of the request.
	//
	// Unknown technologies are reported as services.ErrTechnologyNotFound and
	// invalid changes as services.ErrInvalidInput.
	Update(ctx context.Context, slug string, req models.UpdateTechnologyRequest) (*models.AssetTechnology, error)
}

// TechnologyHandler handles technology HTTP requests
type TechnologyHandler struct {
	BaseHandler
	service TechnologyService
	staffMw func(http.Handler) http.Handler
}

// NewTechnologyHandler creates a new technology handler
func NewTechnologyHandler(service TechnologyService, logger *zap.Logger, staffMw func(http.Handler) http.Handler) *TechnologyHandler {
	return &TechnologyHandler{
		BaseHandler: BaseHandler{Logger: logger},
		service:     service,
		staffMw:     staffMw,
	}
}

// RegisterRoutes registers all technology handler routes
func (h *TechnologyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/technology", h.List)
	r.With(h.staffMw).Put("/academy/technology/{slug}", h.Update)
}

// List handles GET /technology
// @Summary List technologies
// @Tags technologies
// @Produce json
// @Param lang query string false "Language code"
// @Param visibility query string false "PUBLIC, UNLISTED or PRIVATE"
// @Param parent query string false "Comma separated parent IDs"
// @Param like query string false "Title or slug search"
// @Param include_children query bool false "Include child technologies"
// @Success 200 {array} models.AssetTechnology
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/registry/technology [get]
func (h *TechnologyHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TechnologyFilter{
		Lang:       q.Get("lang"),
		Visibility: models.Visibility(q.Get("visibility")),
		Like:       q.Get("like"),
	}

	for _, raw := range queryList(r, "parent") {
		id, err := strconv.Atoi(raw)
		if err != nil {
			h.RespondError(w, http.StatusBadRequest, "parent must be a list of IDs")
			return
		}
		filter.ParentIDs = append(filter.ParentIDs, id)
	}

	includeChildren, err := queryBool(r, "include_children")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter.IncludeChildren = includeChildren != nil && *includeChildren

	techs, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("failed to list technologies", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to list technologies")
		return
	}

	h.RespondJSON(w, http.StatusOK, techs)
}

// Update handles PUT /academy/technology/{slug}
// @Summary Update technology
// @Tags academy
// @Accept json
// @Produce json
// @Param slug path string true "Technology slug"
// @Param request body models.UpdateTechnologyRequest true "Changes"
// @Success 200 {object} models.AssetTechnology
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/registry/academy/technology/{slug} [put]
func (h *TechnologyHandler) Update(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req models.UpdateTechnologyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tech, err := h.service.Update(r.Context(), slug, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTechnologyNotFound):
			h.RespondError(w, http.StatusNotFound, "technology not found")
		case errors.Is(err, services.ErrInvalidInput):
			h.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			h.Logger.Error("failed to update technology", zap.String("slug", slug), zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to update technology")
		}
		return
	}

	h.RespondJSON(w, http.StatusOK, tech)
}
