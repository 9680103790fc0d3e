package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	authMiddleware "github.com/bootcamp/registry/internal/auth/middleware"
	"github.com/bootcamp/registry/internal/models"
	"github.com/bootcamp/registry/internal/readme"
	"github.com/bootcamp/registry/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AssetService defines the asset read and lifecycle operations used by the handler
type AssetService interface {
	// Method List retrieves assets matching the filter.
	//
	// An unknown asset type in the filter is reported as services.ErrInvalidInput.
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, error)
	// Method Get retrieves one asset by its slug.
	//
	// If the asset does not exist services.ErrAssetNotFound is returned.
	Get(ctx context.Context, slug string) (*models.Asset, error)
	// Method Create registers a new DRAFT asset.
	//
	// Invalid requests are reported as services.ErrInvalidInput, taken slugs as services.ErrAssetExists.
	Create(ctx context.Context, req models.CreateAssetRequest) (*models.Asset, error)
	// Method Delete marks an asset as DELETED.
	Delete(ctx context.Context, slug string) error
	// Method RenderReadme returns the readme of an asset in the requested format.
	//
	// "keepFrontmatter" keeps the leading YAML block in the output.
	RenderReadme(ctx context.Context, slug, format string, keepFrontmatter bool) (string, readme.Format, error)
	// Method ForwardURL returns where the "open" link of an asset points to.
	ForwardURL(ctx context.Context, slug string) (string, error)
}

// AssetSyncService pulls and pushes assets against their source repositories
type AssetSyncService interface {
	Pull(ctx context.Context, slug string, opts services.PullOptions) (*models.Asset, error)
	Push(ctx context.Context, slug string, opts services.PushOptions) (*models.Asset, error)
}

// AssetTestService runs the integrity validators of an asset
type AssetTestService interface {
	Test(ctx context.Context, slug string) (*models.Asset, bool, error)
}

// AssetCleanService re-runs the readme cleaning pipeline
type AssetCleanService interface {
	Clean(ctx context.Context, slug string) (*models.Asset, error)
}

// ThumbnailService resolves asset preview images
type ThumbnailService interface {
	// Method GetThumbnailURL returns the URL to redirect to and whether the redirect may be permanent.
	GetThumbnailURL(ctx context.Context, slug string, width, height int) (string, bool, error)
}

// ConfigService serves asset manifests
type ConfigService interface {
	GetConfig(ctx context.Context, slug string) (json.RawMessage, error)
}

// SyncQueue schedules background pulls
type SyncQueue interface {
	Enqueue(ctx context.Context, slug string, overrideMeta bool) error
}

// AssetServices groups the services behind the asset endpoints
type AssetServices struct {
	Assets     AssetService
	Sync       AssetSyncService
	Tests      AssetTestService
	Cleaning   AssetCleanService
	Thumbnails ThumbnailService
	Configs    ConfigService
	Queue      SyncQueue
}

// AssetHandler handles asset HTTP requests
type AssetHandler struct {
	BaseHandler
	svc       AssetServices
	staffMw   func(http.Handler) http.Handler
	serviceMw func(http.Handler) http.Handler
}

// NewAssetHandler creates a new asset handler. staffMw guards the academy
// endpoints and serviceMw the service-to-service ones.
func NewAssetHandler(svc AssetServices, logger *zap.Logger, staffMw, serviceMw func(http.Handler) http.Handler) *AssetHandler {
	return &AssetHandler{
		BaseHandler: BaseHandler{Logger: logger},
		svc:         svc,
		staffMw:     staffMw,
		serviceMw:   serviceMw,
	}
}

// RegisterRoutes registers all asset handler routes
func (h *AssetHandler) RegisterRoutes(r chi.Router) {
	r.Route("/asset", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{slug}", h.Get)
		r.Get("/{slug}/readme.{extension}", h.GetReadme)
		r.Get("/{slug}/thumbnail", h.GetThumbnail)
		r.Get("/{slug}/config", h.GetConfig)
		r.Get("/{slug}/open", h.Open)
		r.With(h.serviceMw).Post("/{slug}/sync", h.EnqueueSync)
	})
	r.Route("/academy/asset", func(r chi.Router) {
		r.Use(h.staffMw)
		r.Post("/", h.Create)
		r.Put("/{slug}/action/{action}", h.RunAction)
		r.Delete("/{slug}", h.Delete)
	})
}

// List handles GET /asset
// @Summary List assets
// @Description List assets with optional filters
// @Tags assets
// @Produce json
// @Param type query string false "LESSON, ARTICLE, EXERCISE, PROJECT or QUIZ"
// @Param lang query string false "Language code"
// @Param status query string false "Asset status"
// @Param visibility query string false "Asset visibility"
// @Param sync_status query string false "PENDING, OK or ERROR"
// @Param technologies query string false "Comma separated technology slugs"
// @Param like query string false "Title or slug search"
// @Param external query bool false "Only external or only repository assets"
// @Param page query int false "Page number"
// @Param count query int false "Page size"
// @Success 200 {array} models.Asset
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/registry/asset [get]
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.AssetFilter{
		AssetType:    models.AssetType(q.Get("type")),
		Lang:         q.Get("lang"),
		Status:       models.AssetStatus(q.Get("status")),
		Visibility:   models.Visibility(q.Get("visibility")),
		SyncStatus:   models.SyncStatus(q.Get("sync_status")),
		Technologies: queryList(r, "technologies"),
		Like:         q.Get("like"),
	}

	var err error
	if filter.External, err = queryBool(r, "external"); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Page, err = queryInt(r, "page"); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Count, err = queryInt(r, "count"); err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	assets, err := h.svc.Assets.List(r.Context(), filter)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			h.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.Logger.Error("failed to list assets", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}

	h.RespondJSON(w, http.StatusOK, assets)
}

// Get handles GET /asset/{slug}
// @Summary Get asset
// @Tags assets
// @Produce json
// @Param slug path string true "Asset slug"
// @Success 200 {object} models.Asset
// @Failure 404 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/registry/asset/{slug} [get]
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	asset, err := h.svc.Assets.Get(r.Context(), slug)
	if err != nil {
		h.respondAssetError(w, slug, err, "failed to get asset")
		return
	}

	h.RespondJSON(w, http.StatusOK, asset)
}

// GetReadme handles GET /asset/{slug}/readme.{extension}
// @Summary Get asset readme
// @Description Render the asset readme as raw, md, mdx, txt, html or ipynb
// @Tags assets
// @Produce plain
// @Param slug path string true "Asset slug"
// @Param extension path string true "raw, md, mdx, txt, html or ipynb"
// @Param frontmatter query bool false "Keep the frontmatter block, default true"
// @Success 200 {string} string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/registry/asset/{slug}/readme.{extension} [get]
func (h *AssetHandler) GetReadme(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	keep, err := queryBool(r, "frontmatter")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	keepFrontmatter := keep == nil || *keep

	content, format, err := h.svc.Assets.RenderReadme(r.Context(), slug, chi.URLParam(r, "extension"), keepFrontmatter)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			h.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondAssetError(w, slug, err, "failed to render readme")
		return
	}

	h.RespondContent(w, http.StatusOK, format.ContentType(), []byte(content))
}

// GetThumbnail handles GET /asset/{slug}/thumbnail
// @Summary Redirect to asset thumbnail
// @Description Redirects to the cached preview image, scheduling generation or resizing when missing
// @Tags assets
// @Param slug path string true "Asset slug"
// @Param width query int false "Requested width"
// @Param height query int false "Requested height"
// @Success 301 "Cached image"
// @Success 302 "Fallback image"
// @Failure 400 {object} map[string]string
// @Router /api/v1/registry/asset/{slug}/thumbnail [get]
func (h *AssetHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	width, err := queryInt(r, "width")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	height, err := queryInt(r, "height")
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, permanent, err := h.svc.Thumbnails.GetThumbnailURL(r.Context(), slug, width, height)
	if err != nil {
		h.Logger.Error("failed to resolve thumbnail", zap.String("slug", slug), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to resolve thumbnail")
		return
	}

	status := http.StatusFound
	if permanent {
		status = http.StatusMovedPermanently
	}
	http.Redirect(w, r, url, status)
}

// GetConfig handles GET /asset/{slug}/config
// @Summary Get asset manifest
// @Description Fetch learn.json or bc.json from the asset repository
// @Tags assets
// @Produce json
// @Param slug path string true "Asset slug"
// @Success 200 {object} object
// @Failure 404 {object} map[string]string
// @Router /api/v1/registry/asset/{slug}/config [get]
func (h *AssetHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	config, err := h.svc.Configs.GetConfig(r.Context(), slug)
	if err != nil {
		if errors.Is(err, services.ErrConfigNotFound) {
			h.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondAssetError(w, slug, err, "failed to get asset config")
		return
	}

	h.RespondContent(w, http.StatusOK, "application/json", config)
}

// Open handles GET /asset/{slug}/open
// @Summary Open asset
// @Description Redirect to the asset URL, through gitpod when enabled
// @Tags assets
// @Param slug path string true "Asset slug"
// @Success 302 "Asset URL"
// @Failure 404 {object} map[string]string
// @Router /api/v1/registry/asset/{slug}/open [get]
func (h *AssetHandler) Open(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	url, err := h.svc.Assets.ForwardURL(r.Context(), slug)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAssetURL) {
			h.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		h.respondAssetError(w, slug, err, "failed to open asset")
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// EnqueueSync handles POST /asset/{slug}/sync
// @Summary Schedule asset sync
// @Tags assets
// @Accept json
// @Produce json
// @Param slug path string true "Asset slug"
// @Param request body models.AssetActionRequest false "Sync options"
// @Success 202 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/v1/registry/asset/{slug}/sync [post]
func (h *AssetHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req models.AssetActionRequest
	if err := h.DecodeOptionalJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Queue.Enqueue(r.Context(), slug, req.OverrideMeta); err != nil {
		h.respondAssetError(w, slug, err, "failed to schedule sync")
		return
	}

	h.RespondJSON(w, http.StatusAccepted, map[string]string{"slug": slug, "status": "queued"})
}

// Create handles POST /academy/asset
// @Summary Create asset
// @Tags academy
// @Accept json
// @Produce json
// @Param request body models.CreateAssetRequest true "Asset"
// @Success 201 {object} models.Asset
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/registry/academy/asset [post]
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == nil {
		if userID, ok := authMiddleware.GetUserID(r.Context()); ok {
			req.OwnerID = &userID
		}
	}

	asset, err := h.svc.Assets.Create(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			h.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrAssetExists):
			h.RespondError(w, http.StatusConflict, err.Error())
		default:
			h.Logger.Error("failed to create asset", zap.Error(err))
			h.RespondError(w, http.StatusInternalServerError, "failed to create asset")
		}
		return
	}

	h.RespondJSON(w, http.StatusCreated, asset)
}

// RunAction handles PUT /academy/asset/{slug}/action/{action}
// @Summary Run an asset action
// @Description Runs test, sync, push or clean and returns the refreshed asset. Failures are reported in sync_status, test_status or cleaning_status.
// @Tags academy
// @Accept json
// @Produce json
// @Param slug path string true "Asset slug"
// @Param action path string true "test, sync, push or clean"
// @Param request body models.AssetActionRequest false "Action options"
// @Success 200 {object} models.Asset
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/registry/academy/asset/{slug}/action/{action} [put]
func (h *AssetHandler) RunAction(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	action := models.AssetAction(chi.URLParam(r, "action"))

	if !action.IsValid() {
		h.RespondError(w, http.StatusBadRequest, "unknown action "+string(action))
		return
	}

	var req models.AssetActionRequest
	if err := h.DecodeOptionalJSON(r, &req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var authorID *int
	if userID, ok := authMiddleware.GetUserID(r.Context()); ok {
		authorID = &userID
	}

	asset, err := h.runAction(r.Context(), slug, action, req, authorID)
	if err != nil {
		if errors.Is(err, services.ErrAssetNotFound) {
			h.RespondError(w, http.StatusNotFound, "asset not found")
			return
		}
		h.Logger.Warn("asset action failed",
			zap.String("slug", slug),
			zap.String("action", string(action)),
			zap.String("kind", string(services.KindOf(err))),
			zap.Error(err),
		)
	}

	// a pull may rename the asset from its frontmatter
	if asset == nil {
		asset, err = h.svc.Assets.Get(r.Context(), slug)
		if err != nil {
			h.respondAssetError(w, slug, err, "failed to get asset")
			return
		}
	}

	h.RespondJSON(w, http.StatusOK, asset)
}

func (h *AssetHandler) runAction(ctx context.Context, slug string, action models.AssetAction, req models.AssetActionRequest, authorID *int) (*models.Asset, error) {
	switch action {
	case models.AssetActionTest:
		asset, _, err := h.svc.Tests.Test(ctx, slug)
		return asset, err
	case models.AssetActionSync:
		return h.svc.Sync.Pull(ctx, slug, services.PullOptions{AuthorID: authorID, OverrideMeta: req.OverrideMeta})
	case models.AssetActionPush:
		return h.svc.Sync.Push(ctx, slug, services.PushOptions{AuthorID: authorID})
	case models.AssetActionClean:
		return h.svc.Cleaning.Clean(ctx, slug)
	}
	return nil, nil
}

// Delete handles DELETE /academy/asset/{slug}
// @Summary Delete asset
// @Description Marks the asset as DELETED
// @Tags academy
// @Param slug path string true "Asset slug"
// @Success 204
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /api/v1/registry/academy/asset/{slug} [delete]
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	if err := h.svc.Assets.Delete(r.Context(), slug); err != nil {
		h.respondAssetError(w, slug, err, "failed to delete asset")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondAssetError answers 404 for unknown assets and 500 otherwise
func (h *AssetHandler) respondAssetError(w http.ResponseWriter, slug string, err error, message string) {
	if errors.Is(err, services.ErrAssetNotFound) {
		h.RespondError(w, http.StatusNotFound, "asset not found")
		return
	}
	h.Logger.Error(message, zap.String("slug", slug), zap.Error(err))
	h.RespondError(w, http.StatusInternalServerError, message)
}
