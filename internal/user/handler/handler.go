package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolpay/internal/user"
	"schoolpay/internal/user/service"
	id "schoolpay/pkg/domain"
	"schoolpay/pkg/platform/httputil"
	"schoolpay/pkg/requestcontext"
)

// Service is the user operations surface.
type Service interface {
	Register(ctx context.Context, in service.RegisterInput) (*user.User, string, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, email, token, next string) error
	Me(ctx context.Context, userID id.UserID) (*user.User, error)
	UpdateDetails(ctx context.Context, userID id.UserID, in service.UpdateDetailsInput) (*user.User, error)
	UpdatePassword(ctx context.Context, userID id.UserID, current, next string) error
	List(ctx context.Context) ([]user.User, error)
	Get(ctx context.Context, userID id.UserID) (*user.User, error)
	UpdateRole(ctx context.Context, userID id.UserID, role user.Role) (*user.User, error)
	Delete(ctx context.Context, userID id.UserID) error
}

// Handler wires account endpoints to the user service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated auth endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/forgot-password", h.HandleForgotPassword)
	r.Post("/auth/reset-password", h.HandleResetPassword)
}

// Register mounts the authenticated self-service endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/users/me", h.HandleMe)
	r.Patch("/users/me", h.HandleUpdateDetails)
	r.Put("/users/me/password", h.HandleUpdatePassword)
}

// RegisterAdmin mounts the admin-only account management endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/users", h.HandleList)
	r.Get("/users/{userID}", h.HandleGet)
	r.Patch("/users/{userID}/role", h.HandleUpdateRole)
	r.Delete("/users/{userID}", h.HandleDelete)
}

// HandleRegister handles POST /auth/register.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[RegisterRequest](w, r)
	if !ok {
		return
	}

	u, token, err := h.service.Register(ctx, service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      user.Role(req.Role),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SessionResponse{Token: token, User: toUserResponse(u)})
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[LoginRequest](w, r)
	if !ok {
		return
	}

	u, token, err := h.service.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SessionResponse{Token: token, User: toUserResponse(u)})
}

// HandleForgotPassword handles POST /auth/forgot-password. Always responds
// 202 regardless of whether the email exists.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[ForgotPasswordRequest](w, r)
	if !ok {
		return
	}

	token, err := h.service.ForgotPassword(ctx, req.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "forgot-password failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if token != "" {
		// Stands in for a mail delivery; the token reaches the user out of band.
		h.logger.InfoContext(ctx, "password reset token issued",
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleResetPassword handles POST /auth/reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[ResetPasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.ResetPassword(ctx, req.Email, req.Token, req.Password); err != nil {
		h.logger.WarnContext(ctx, "password reset failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// HandleMe handles GET /users/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := h.service.Me(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleUpdateDetails handles PATCH /users/me.
func (h *Handler) HandleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[UpdateDetailsRequest](w, r)
	if !ok {
		return
	}

	u, err := h.service.UpdateDetails(ctx, requestcontext.UserID(ctx), service.UpdateDetailsInput{
		Bio:           req.Bio,
		BankName:      req.BankName,
		BankCode:      req.BankCode,
		AccountName:   req.AccountName,
		AccountNumber: req.AccountNumber,
		Picture:       req.Picture,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "profile update failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", requestcontext.UserID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleUpdatePassword handles PUT /users/me/password.
func (h *Handler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[UpdatePasswordRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.UpdatePassword(ctx, requestcontext.UserID(ctx), req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// HandleList handles GET /users.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, toUserResponse(&users[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /users/{userID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	u, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleUpdateRole handles PATCH /users/{userID}/role.
func (h *Handler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.Decode[UpdateRoleRequest](w, r)
	if !ok {
		return
	}

	u, err := h.service.UpdateRole(ctx, userID, user.Role(req.Role))
	if err != nil {
		h.logger.ErrorContext(ctx, "role update failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleDelete handles DELETE /users/{userID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
