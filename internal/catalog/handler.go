package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/artiscatalog/internal/filter"
	"github.com/HerbHall/artiscatalog/internal/plugin"
	"github.com/HerbHall/artiscatalog/internal/server"
	"github.com/HerbHall/artiscatalog/internal/services"
	pkgcatalog "github.com/HerbHall/artiscatalog/pkg/catalog"
	"github.com/HerbHall/artiscatalog/pkg/models"
)

// ProductsResponse is the response for GET /api/v1/catalog/products.
type ProductsResponse struct {
	Query    filter.Snapshot  `json:"query"`
	Count    int              `json:"count"`
	Products []models.Product `json:"products"`
}

// Handler serves the catalog REST API.
type Handler struct {
	engine       *Engine
	prefs        services.PreferencesRepository
	logger       *zap.Logger
	relatedLimit int
	suggestLimit int
}

// NewHandler creates a new catalog API handler. prefs may be nil, in which
// case preferences are neither read nor stored.
func NewHandler(engine *Engine, prefs services.PreferencesRepository, logger *zap.Logger) *Handler {
	return &Handler{
		engine:       engine,
		prefs:        prefs,
		logger:       logger,
		relatedLimit: DefaultRelatedLimit,
		suggestLimit: 8,
	}
}

// Routes returns the catalog routes, relative to /api/v1/catalog.
func (h *Handler) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: http.MethodGet, Path: "/products", Handler: h.handleListProducts},
		{Method: http.MethodGet, Path: "/products.csv", Handler: h.handleExportCSV},
		{Method: http.MethodGet, Path: "/products/{code}", Handler: h.handleGetProduct},
		{Method: http.MethodGet, Path: "/products/{code}/related", Handler: h.handleRelated},
		{Method: http.MethodGet, Path: "/categories", Handler: h.handleCategories},
		{Method: http.MethodGet, Path: "/catalogs", Handler: h.handleCatalogs},
		{Method: http.MethodGet, Path: "/stats", Handler: h.handleStats},
		{Method: http.MethodGet, Path: "/textures", Handler: h.handleTextures},
		{Method: http.MethodGet, Path: "/suggest", Handler: h.handleSuggest},
		{Method: http.MethodGet, Path: "/preferences", Handler: h.handleGetPreferences},
		{Method: http.MethodPut, Path: "/preferences", Handler: h.handlePutPreferences},
	}
}

// SnapshotFromQuery builds a pipeline snapshot from query parameters. catalog
// and category may repeat; duplicates collapse. unmatched falls back to
// defaultUnmatched when absent.
func SnapshotFromQuery(v url.Values, defaultUnmatched bool) (filter.Snapshot, error) {
	snap := filter.DefaultSnapshot()
	snap.SearchQuery = v.Get("q")
	snap.ShowUnmatched = defaultUnmatched

	for _, c := range v["catalog"] {
		if c != "" && !contains(snap.Catalogs, models.Catalog(c)) {
			snap.Catalogs = append(snap.Catalogs, models.Catalog(c))
		}
	}
	for _, c := range v["category"] {
		if c != "" && !contains(snap.Categories, c) {
			snap.Categories = append(snap.Categories, c)
		}
	}

	if s := v.Get("unmatched"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return snap, fmt.Errorf("unmatched must be a boolean")
		}
		snap.ShowUnmatched = b
	}
	if s := v.Get("sort"); s != "" {
		k, err := filter.ParseSortKey(s)
		if err != nil {
			return snap, err
		}
		snap.SortBy = k
	}
	if s := v.Get("order"); s != "" {
		o, err := filter.ParseSortOrder(s)
		if err != nil {
			return snap, err
		}
		snap.SortOrder = o
	}
	return snap, nil
}

func contains[T comparable](items []T, v T) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

// querySnapshot resolves the request's snapshot, defaulting the unmatched
// toggle to the caller's stored preference.
func (h *Handler) querySnapshot(w http.ResponseWriter, r *http.Request) (filter.Snapshot, bool) {
	prefs := h.loadPreferences(w, r)
	snap, err := SnapshotFromQuery(r.URL.Query(), prefs.ShowUnmatched)
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return snap, false
	}
	snap.ViewMode = prefs.ViewMode
	return snap, true
}

func (h *Handler) loadPreferences(w http.ResponseWriter, r *http.Request) filter.Preferences {
	if h.prefs == nil {
		return filter.DefaultPreferences()
	}
	clientID := server.ClientID(w, r)
	p, err := services.LoadPreferences(r.Context(), h.prefs, clientID)
	if err != nil {
		h.logger.Warn("failed to load preferences", zap.String("client_id", clientID), zap.Error(err))
	}
	return p
}

// handleListProducts runs the filter pipeline.
//
//	@Summary		List products
//	@Description	Runs the filter pipeline: matched, catalog, category, fuzzy search, then sort.
//	@Tags			catalog
//	@Produce		json
//	@Param			q query string false "Search text (2+ characters)"
//	@Param			catalog query []string false "Catalog names (repeatable)"
//	@Param			category query []string false "Categories (repeatable)"
//	@Param			unmatched query bool false "Include unverified designs"
//	@Param			sort query string false "name, code or category" default(name)
//	@Param			order query string false "asc or desc" default(asc)
//	@Success		200 {object} ProductsResponse
//	@Failure		400 {object} server.Problem
//	@Router			/catalog/products [get]
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.querySnapshot(w, r)
	if !ok {
		return
	}
	products, err := h.engine.Query(snap)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, ProductsResponse{
		Query:    snap,
		Count:    len(products),
		Products: products,
	})
}

// handleExportCSV returns the filtered list as CSV.
//
//	@Summary		Export products
//	@Tags			catalog
//	@Produce		text/csv
//	@Success		200 {string} string
//	@Router			/catalog/products.csv [get]
func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.querySnapshot(w, r)
	if !ok {
		return
	}
	products, err := h.engine.Query(snap)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="artis-catalog.csv"`)
	if err := writeCSV(w, products); err != nil {
		h.logger.Warn("csv export interrupted", zap.Error(err))
	}
}

// handleGetProduct returns one product with its derived detail views.
//
//	@Summary		Get product
//	@Tags			catalog
//	@Produce		json
//	@Param			code path string true "Product code (exact, case-sensitive)"
//	@Success		200 {object} Detail
//	@Failure		404 {object} server.Problem
//	@Router			/catalog/products/{code} [get]
func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	d, err := h.engine.Detail(code)
	if err != nil {
		h.lookupError(w, r, code, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, d)
}

// handleRelated returns designs related to a product.
//
//	@Summary		Related products
//	@Tags			catalog
//	@Produce		json
//	@Param			code path string true "Product code"
//	@Param			limit query int false "Maximum results" default(6)
//	@Success		200 {array} models.Product
//	@Failure		404 {object} server.Problem
//	@Router			/catalog/products/{code}/related [get]
func (h *Handler) handleRelated(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intParam(w, r, "limit", h.relatedLimit)
	if !ok {
		return
	}
	code := r.PathValue("code")
	related, err := h.engine.Related(code, limit)
	if err != nil {
		h.lookupError(w, r, code, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, related)
}

// handleCategories lists the distinct categories.
func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.engine.Categories()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, cats)
}

// handleCatalogs lists the known collections in display order.
func (h *Handler) handleCatalogs(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, models.Catalogs)
}

// handleStats returns the dataset counts.
//
//	@Summary		Catalog statistics
//	@Tags			catalog
//	@Produce		json
//	@Success		200 {object} pkgcatalog.Stats
//	@Router			/catalog/stats [get]
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats()
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, stats)
}

// handleTextures lists the texture reference table, ordered by code.
func (h *Handler) handleTextures(w http.ResponseWriter, _ *http.Request) {
	out := make([]models.Texture, 0, len(models.Textures))
	for _, t := range models.Textures {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	server.WriteJSON(w, http.StatusOK, out)
}

// handleSuggest returns type-ahead completions.
func (h *Handler) handleSuggest(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intParam(w, r, "limit", h.suggestLimit)
	if !ok {
		return
	}
	suggestions, err := h.engine.Suggest(r.URL.Query().Get("q"), limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, suggestions)
}

// handleGetPreferences returns the caller's persisted view preferences.
func (h *Handler) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, h.loadPreferences(w, r))
}

// handlePutPreferences replaces the caller's persisted view preferences.
//
//	@Summary		Save preferences
//	@Tags			catalog
//	@Accept			json
//	@Produce		json
//	@Param			body body filter.Preferences true "view_mode and show_unmatched"
//	@Success		200 {object} filter.Preferences
//	@Failure		400 {object} server.Problem
//	@Router			/catalog/preferences [put]
func (h *Handler) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var p filter.Preferences
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&p); err != nil {
		server.BadRequest(w, "invalid JSON body", r.URL.Path)
		return
	}
	if p.ViewMode == "" {
		p.ViewMode = filter.ViewGrid
	}
	if _, err := filter.ParseViewMode(string(p.ViewMode)); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if h.prefs == nil {
		server.WriteJSON(w, http.StatusOK, p)
		return
	}
	clientID := server.ClientID(w, r)
	if err := h.prefs.Save(r.Context(), clientID, p); err != nil {
		h.internalError(w, r, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, p)
}

// -- helpers --

func (h *Handler) intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		server.BadRequest(w, name+" must be a non-negative integer", r.URL.Path)
		return 0, false
	}
	return n, true
}

func (h *Handler) lookupError(w http.ResponseWriter, r *http.Request, code string, err error) {
	if errors.Is(err, pkgcatalog.ErrNotFound) {
		server.NotFound(w, fmt.Sprintf("product %q not found", code), r.URL.Path)
		return
	}
	h.internalError(w, r, err)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("catalog request failed", zap.String("path", r.URL.Path), zap.Error(err))
	server.InternalError(w, "failed to load catalog", r.URL.Path)
}
