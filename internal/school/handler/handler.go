package handler

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolpay/internal/school"
	"schoolpay/internal/school/service"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/httputil"
	"schoolpay/pkg/requestcontext"
)

// maxRosterSize caps roster uploads at 5 MB.
const maxRosterSize = 5 << 20

// Service is the school operations surface.
type Service interface {
	Create(ctx context.Context, ownerID id.UserID, in service.CreateInput) (*school.School, error)
	Get(ctx context.Context, schoolID id.SchoolID) (*school.School, error)
	GetMine(ctx context.Context, ownerID id.UserID) (*school.School, error)
	List(ctx context.Context) ([]school.School, error)
	Update(ctx context.Context, schoolID id.SchoolID, in service.UpdateInput) (*school.School, error)
	SetFees(ctx context.Context, schoolID id.SchoolID, items []school.FeeItem) (*school.School, error)
	ImportRoster(ctx context.Context, schoolID id.SchoolID, r io.Reader) (*service.ImportResult, error)
	Delete(ctx context.Context, schoolID id.SchoolID) error
}

// Handler wires school endpoints to the school service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated school endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/schools", h.HandleList)
	r.Get("/schools/{schoolID}", h.HandleGet)
}

// RegisterOwner mounts the school-owner endpoints.
func (h *Handler) RegisterOwner(r chi.Router) {
	r.Post("/schools", h.HandleCreate)
	r.Get("/schools/mine", h.HandleGetMine)
	r.Patch("/schools/{schoolID}", h.HandleUpdate)
	r.Put("/schools/{schoolID}/fees", h.HandleSetFees)
	r.Post("/schools/{schoolID}/roster", h.HandleImportRoster)
}

// RegisterAdmin mounts the admin-only school endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/schools/{schoolID}", h.HandleDelete)
}

// HandleCreate handles POST /schools.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[CreateSchoolRequest](w, r)
	if !ok {
		return
	}

	sc, err := h.service.Create(ctx, requestcontext.UserID(ctx), service.CreateInput{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
		Logo:    req.Logo,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "school creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", requestcontext.UserID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toSchoolResponse(sc))
}

// HandleList handles GET /schools.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	schools, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]SchoolResponse, 0, len(schools))
	for i := range schools {
		resp = append(resp, toSchoolResponse(&schools[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /schools/{schoolID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	schoolID, err := id.ParseSchoolID(chi.URLParam(r, "schoolID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sc, err := h.service.Get(r.Context(), schoolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSchoolResponse(sc))
}

// HandleGetMine handles GET /schools/mine.
func (h *Handler) HandleGetMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sc, err := h.service.GetMine(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSchoolResponse(sc))
}

// HandleUpdate handles PATCH /schools/{schoolID}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	schoolID, err := id.ParseSchoolID(chi.URLParam(r, "schoolID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[UpdateSchoolRequest](w, r)
	if !ok {
		return
	}

	sc, err := h.service.Update(ctx, schoolID, service.UpdateInput{
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		Logo:        req.Logo,
		Tag:         req.Tag,
		Header:      req.Header,
		Bio:         req.Bio,
		Color:       req.Color,
		Social:      req.Social,
		FeeDeadline: req.FeeDeadline,
		Installment: req.Installment,
		Sessions:    req.Sessions,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "school update failed",
			"request_id", requestcontext.RequestID(ctx),
			"school_id", schoolID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSchoolResponse(sc))
}

// HandleSetFees handles PUT /schools/{schoolID}/fees.
func (h *Handler) HandleSetFees(w http.ResponseWriter, r *http.Request) {
	schoolID, err := id.ParseSchoolID(chi.URLParam(r, "schoolID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[SetFeesRequest](w, r)
	if !ok {
		return
	}

	sc, err := h.service.SetFees(r.Context(), schoolID, req.toFeeItems())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSchoolResponse(sc))
}

// HandleImportRoster handles POST /schools/{schoolID}/roster. Accepts either
// a multipart upload under the "roster" field or a raw CSV body.
func (h *Handler) HandleImportRoster(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	schoolID, err := id.ParseSchoolID(chi.URLParam(r, "schoolID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	body, cleanup := rosterBody(r)
	defer cleanup()

	result, err := h.service.ImportRoster(ctx, schoolID, io.LimitReader(body, maxRosterSize))
	if err != nil {
		h.logger.WarnContext(ctx, "roster import failed",
			"request_id", requestcontext.RequestID(ctx),
			"school_id", schoolID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "roster imported",
		"request_id", requestcontext.RequestID(ctx),
		"school_id", schoolID,
		"created", result.Created,
		"updated", result.Updated,
		"failed", len(result.Errors),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleDelete handles DELETE /schools/{schoolID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	schoolID, err := id.ParseSchoolID(chi.URLParam(r, "schoolID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), schoolID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func rosterBody(r *http.Request) (io.Reader, func()) {
	if f, ok := multipartRoster(r); ok {
		return f, func() { f.Close() }
	}
	return r.Body, func() {}
}

func multipartRoster(r *http.Request) (multipart.File, bool) {
	if err := r.ParseMultipartForm(maxRosterSize); err != nil {
		return nil, false
	}
	f, _, err := r.FormFile("roster")
	if err != nil {
		return nil, false
	}
	return f, true
}
