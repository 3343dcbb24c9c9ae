package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"devconnect/internal/developer/models"
	"devconnect/internal/developer/service"
	"devconnect/internal/developer/view"
	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/platform/httputil"
	"devconnect/pkg/requestcontext"
)

// Service defines the developer operations the handler depends on.
type Service interface {
	Browse(ctx context.Context, q view.Query) (*view.Page, error)
	List(ctx context.Context) ([]models.Developer, error)
	Get(ctx context.Context, devID id.DeveloperID) (*models.Developer, error)
	Add(ctx context.Context, draft models.Draft) (*models.Developer, error)
	Update(ctx context.Context, devID id.DeveloperID, patch models.Patch) (*models.Developer, error)
	Delete(ctx context.Context, devID id.DeveloperID) error
	Dashboard(ctx context.Context) (*service.Dashboard, error)
	UpdateDashboard(ctx context.Context, upd service.DashboardUpdate) (*service.Dashboard, error)
}

// Handler wires developer endpoints to the developer service.
type Handler struct {
	service  Service
	logger   *slog.Logger
	pageSize int
}

// New constructs a developer handler. pageSize is the default for browse
// queries that do not pass page_size.
func New(service Service, logger *slog.Logger, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = view.DefaultPageSize
	}
	return &Handler{
		service:  service,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Register mounts developer endpoints on the router. The caller is
// responsible for authentication middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/developers", h.HandleBrowse)
	r.Post("/developers", h.HandleCreate)
	r.Get("/developers/all", h.HandleList)
	r.Get("/developers/{id}", h.HandleGet)
	r.Patch("/developers/{id}", h.HandleUpdate)
	r.Delete("/developers/{id}", h.HandleDelete)
	r.Get("/dashboard", h.HandleDashboard)
	r.Patch("/dashboard", h.HandleUpdateDashboard)
}

// HandleBrowse handles GET /developers?search=&role=&sort=&page=&page_size=.
func (h *Handler) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	q, err := h.parseQuery(r.URL.Query())
	if err != nil {
		h.logger.WarnContext(ctx, "invalid browse query",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.Browse(ctx, q)
	if err != nil {
		h.writeServiceError(ctx, w, "browse developers failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPage(*page))
}

// HandleList handles GET /developers/all.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	devs, err := h.service.List(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "list developers failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Developers: FromDevelopers(devs), Total: len(devs)})
}

// HandleCreate handles POST /developers.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDeveloperRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dev, err := h.service.Add(ctx, req.ToDraft(requestcontext.Now(ctx)))
	if err != nil {
		h.writeServiceError(ctx, w, "create developer failed", err)
		return
	}

	h.logger.InfoContext(ctx, "developer created",
		"request_id", requestID,
		"developer_id", dev.ID,
	)
	w.Header().Set("Location", "/developers/"+url.PathEscape(dev.ID.String()))
	httputil.WriteJSON(w, http.StatusCreated, FromDeveloper(*dev))
}

// HandleGet handles GET /developers/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	devID, ok := h.developerID(w, r)
	if !ok {
		return
	}

	dev, err := h.service.Get(ctx, devID)
	if err != nil {
		h.writeServiceError(ctx, w, "get developer failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDeveloper(*dev))
}

// HandleUpdate handles PATCH /developers/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	devID, ok := h.developerID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateDeveloperRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dev, err := h.service.Update(ctx, devID, req.ToPatch())
	if err != nil {
		h.writeServiceError(ctx, w, "update developer failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDeveloper(*dev))
}

// HandleDelete handles DELETE /developers/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	devID, ok := h.developerID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, devID); err != nil {
		h.writeServiceError(ctx, w, "delete developer failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDashboard handles GET /dashboard.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	dash, err := h.service.Dashboard(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "load dashboard failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDashboard(dash))
}

// HandleUpdateDashboard handles PATCH /dashboard.
func (h *Handler) HandleUpdateDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[UpdateDashboardRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	dash, err := h.service.UpdateDashboard(ctx, req.ToUpdate())
	if err != nil {
		h.writeServiceError(ctx, w, "update dashboard failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDashboard(dash))
}

// developerID resolves the path id. An id that cannot name any record is
// reported the same way as a stale one.
func (h *Handler) developerID(w http.ResponseWriter, r *http.Request) (id.DeveloperID, bool) {
	devID, err := id.ParseDeveloperID(chi.URLParam(r, "id"))
	if err != nil {
		h.logger.WarnContext(r.Context(), "unusable developer id",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "developer not found"))
		return "", false
	}
	return devID, true
}

func (h *Handler) parseQuery(values url.Values) (view.Query, error) {
	q := view.DefaultQuery(h.pageSize)
	q.Search = strings.TrimSpace(values.Get("search"))

	role, err := view.ParseRoleFilter(values.Get("role"))
	if err != nil {
		return view.Query{}, err
	}
	q.Role = role

	order, err := view.ParseSortOrder(values.Get("sort"))
	if err != nil {
		return view.Query{}, err
	}
	q.Sort = order

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return view.Query{}, dErrors.New(dErrors.CodeInvalidInput, "page must be an integer")
		}
		q.Page = n
	}
	if raw := values.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > view.MaxPageSize {
			return view.Query{}, dErrors.New(dErrors.CodeInvalidInput, "page_size must be between 1 and 100")
		}
		q.PageSize = n
	}
	return q, nil
}

// writeServiceError logs expected client errors at warn and everything else at error.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if de, ok := dErrors.As(err); ok && httputil.StatusFor(de.Code) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	} else {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
