package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sorianoB28/big-feelings-toolkit-app/internal/auth"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/config"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/crypto"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/model"
	"github.com/sorianoB28/big-feelings-toolkit-app/internal/repository"
)

type Server struct {
	cfg   config.Config
	store *repository.Store
	redis *redis.Client
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("missing_jwt_secret")
	}
	return &Server{
		cfg:   cfg,
		store: store,
		redis: redisClient,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.With(s.authMiddleware).Post("/auth/logout", s.handleLogout)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)
	r.With(s.authMiddleware).Post("/auth/password", s.handleChangePassword)

	r.Route("/students", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListStudents)
		r.Post("/", s.handleCreateStudent)
		r.Get("/{studentId}", s.handleGetStudent)
		r.Put("/{studentId}", s.handleUpdateStudent)
	})

	r.With(s.authMiddleware).Get("/classrooms", s.handleListClassrooms)

	r.Route("/staff", func(r chi.Router) {
		r.Use(s.authMiddleware, s.requireRole(model.RoleAdmin))
		r.Get("/", s.handleListStaff)
		r.Post("/", s.handleCreateStaff)
	})

	return r
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         userSummary `json:"user"`
}

type userSummary struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  *string `json:"name,omitempty"`
	Role  string  `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = model.NormalizeEmail(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	throttled, err := s.loginThrottled(r.Context(), req.Email)
	if err == nil && throttled {
		writeError(w, http.StatusTooManyRequests, "too_many_attempts")
		return
	}

	user, err := s.store.VerifyCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidCredentials),
			errors.Is(err, repository.ErrDomainNotAllowed),
			errors.Is(err, repository.ErrInactiveAccount):
			_ = s.recordLoginFailure(r.Context(), req.Email)
			writeError(w, http.StatusUnauthorized, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	_ = s.clearLoginFailures(r.Context(), req.Email)

	accessToken, refreshToken, err := s.issueTokens(r.Context(), user, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         mapUserSummary(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "missing_refresh_token")
		return
	}

	tokenHash := crypto.HashToken(req.RefreshToken)
	session, err := s.store.GetRefreshSession(r.Context(), tokenHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "invalid_refresh_token")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if session.RevokedAt != nil || session.ExpiresAt.Before(time.Now().UTC()) {
		writeError(w, http.StatusUnauthorized, "refresh_token_expired")
		return
	}

	// Rotation re-reads the user row, so role edits and deactivation take
	// effect here at the latest.
	user, err := s.store.GetUserByID(r.Context(), session.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "user_not_found")
		return
	}
	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "inactive_account")
		return
	}

	if err := s.store.RevokeRefreshSession(r.Context(), session.ID, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	authUser := model.AuthenticatedUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	accessToken, refreshToken, err := s.issueTokens(r.Context(), authUser, r.UserAgent(), clientIP(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token_error")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         mapUserSummary(authUser),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	_ = s.store.RevokeRefreshSessionsByUser(r.Context(), claims.UserID, time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type profileResponse struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       *string `json:"name,omitempty"`
	Role       string  `json:"role"`
	SchoolName *string `json:"schoolName,omitempty"`
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	profile, err := s.store.GetStaffProfileByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		ID:         profile.ID,
		Email:      profile.Email,
		Name:       profile.Name,
		Role:       profile.Role.String(),
		SchoolName: profile.SchoolName,
	})
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword"`
	NewPassword        string `json:"newPassword"`
	ConfirmNewPassword string `json:"confirmNewPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	req.CurrentPassword = strings.TrimSpace(req.CurrentPassword)
	req.NewPassword = strings.TrimSpace(req.NewPassword)
	req.ConfirmNewPassword = strings.TrimSpace(req.ConfirmNewPassword)

	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmNewPassword == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	if len(req.NewPassword) < 8 || len(req.NewPassword) > 128 {
		writeError(w, http.StatusBadRequest, "password_length")
		return
	}
	if req.NewPassword != req.ConfirmNewPassword {
		writeError(w, http.StatusBadRequest, "password_mismatch")
		return
	}
	if req.NewPassword == req.CurrentPassword {
		writeError(w, http.StatusBadRequest, "password_unchanged")
		return
	}

	err := s.store.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrIncorrectPassword):
			writeError(w, http.StatusBadRequest, "incorrect_password")
		case errors.Is(err, repository.ErrAccountUnavailable):
			writeError(w, http.StatusForbidden, "account_unavailable")
		default:
			writeError(w, http.StatusInternalServerError, "server_error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type studentListItem struct {
	ID                    string  `json:"id"`
	DisplayName           string  `json:"displayName"`
	Grade                 *string `json:"grade,omitempty"`
	HomeroomClassroomID   *string `json:"homeroomClassroomId,omitempty"`
	HomeroomClassroomName *string `json:"homeroomClassroomName,omitempty"`
	Active                bool    `json:"active"`
	CreatedAt             string  `json:"createdAt"`
	UpdatedAt             string  `json:"updatedAt"`
}

type studentDetail struct {
	studentListItem
	SchoolID        string  `json:"schoolId"`
	CreatedByUserID *string `json:"createdByUserId,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type studentRequest struct {
	DisplayName         string  `json:"displayName"`
	Grade               *string `json:"grade,omitempty"`
	HomeroomClassroomID *string `json:"homeroomClassroomId,omitempty"`
	Notes               *string `json:"notes,omitempty"`
	Active              bool    `json:"active"`
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	students, err := s.store.ListStudents(r.Context(), claims.UserID, r.URL.Query().Get("search"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	resp := make([]studentListItem, 0, len(students))
	for _, student := range students {
		resp = append(resp, mapStudentListItem(student))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	student, err := s.store.GetStudentByID(r.Context(), claims.UserID, studentID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapStudentDetail(student))
}

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req studentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	id, err := s.store.CreateStudent(r.Context(), claims.UserID, studentInput(req))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	student, err := s.store.GetStudentByID(r.Context(), claims.UserID, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapStudentDetail(student))
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	studentID := chi.URLParam(r, "studentId")
	if studentID == "" {
		writeError(w, http.StatusBadRequest, "missing_student_id")
		return
	}

	var req studentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	if err := s.store.UpdateStudent(r.Context(), claims.UserID, studentID, studentInput(req)); err != nil {
		s.writeStoreError(w, err)
		return
	}

	student, err := s.store.GetStudentByID(r.Context(), claims.UserID, studentID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapStudentDetail(student))
}

type classroomOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleListClassrooms(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	options, err := s.store.ListClassroomOptions(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	resp := make([]classroomOption, 0, len(options))
	for _, option := range options {
		resp = append(resp, classroomOption{ID: option.ID, Name: option.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

type staffListItem struct {
	ID        string  `json:"id"`
	Name      *string `json:"name,omitempty"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	IsActive  bool    `json:"isActive"`
	CreatedAt string  `json:"createdAt"`
}

type createStaffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"temporaryPassword"`
}

func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	staff, err := s.store.ListStaff(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	resp := make([]staffListItem, 0, len(staff))
	for _, item := range staff {
		resp = append(resp, staffListItem{
			ID:        item.ID,
			Name:      item.Name,
			Email:     item.Email,
			Role:      item.Role.String(),
			IsActive:  item.IsActive,
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}

	var req createStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	// The new account always lands in the admin's own school.
	scope, err := s.store.GetAccessScope(r.Context(), claims.UserID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	id, err := s.store.CreateStaffUser(r.Context(), scope.SchoolID, model.StaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Role:     model.Role(strings.TrimSpace(strings.ToLower(req.Role))),
		Password: req.Password,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) issueTokens(ctx context.Context, user model.AuthenticatedUser, userAgent, ip string) (string, string, error) {
	accessToken, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	})
	if err != nil {
		return "", "", err
	}

	refreshToken, err := crypto.NewRefreshToken()
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	session := model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.HashToken(refreshToken),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if userAgent != "" {
		session.UserAgent = &userAgent
	}
	if ip != "" {
		session.IPAddress = &ip
	}

	if err := s.store.CreateRefreshSession(ctx, session); err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole gates an operation on the actor's role from the signed token.
// The answer is 403 regardless of whether the target resource exists.
func (s *Server) requireRole(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing_token")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeStoreError translates repository failure kinds into responses.
// Cross-tenant misses stay indistinguishable from missing rows, and a
// corrupted stored role is an unexpected failure, not a user-facing one.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation_error",
			"field":   validationErr.Field,
			"message": validationErr.Message,
		})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, repository.ErrInvalidClassroom):
		writeError(w, http.StatusBadRequest, "invalid_classroom")
	case errors.Is(err, repository.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate_email")
	case errors.Is(err, repository.ErrDomainNotAllowed):
		writeError(w, http.StatusBadRequest, "domain_not_allowed")
	case errors.Is(err, repository.ErrAccountInactive):
		writeError(w, http.StatusForbidden, "account_inactive")
	case errors.Is(err, repository.ErrMissingSchool):
		writeError(w, http.StatusForbidden, "missing_school")
	default:
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func mapUserSummary(user model.AuthenticatedUser) userSummary {
	return userSummary{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role.String(),
	}
}

func mapStudentListItem(student model.StudentListItem) studentListItem {
	return studentListItem{
		ID:                    student.ID,
		DisplayName:           student.DisplayName,
		Grade:                 student.Grade,
		HomeroomClassroomID:   student.HomeroomClassroomID,
		HomeroomClassroomName: student.HomeroomClassroomName,
		Active:                student.Active,
		CreatedAt:             student.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:             student.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mapStudentDetail(student model.StudentDetail) studentDetail {
	return studentDetail{
		studentListItem: mapStudentListItem(student.StudentListItem),
		SchoolID:        student.SchoolID,
		CreatedByUserID: student.CreatedByUserID,
		Notes:           student.Notes,
	}
}

func studentInput(req studentRequest) model.StudentInput {
	return model.StudentInput{
		DisplayName:         req.DisplayName,
		Grade:               req.Grade,
		HomeroomClassroomID: req.HomeroomClassroomID,
		Notes:               req.Notes,
		Active:              req.Active,
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return ""
}
