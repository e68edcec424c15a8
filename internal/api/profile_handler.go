package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/middleware"
	"github.com/peerlink/backend/pkg/response"
	"github.com/peerlink/backend/pkg/validator"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	profileService *domain.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService *domain.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

// ProfileRequest is the editable part of a profile
type ProfileRequest struct {
	FirstName         string   `json:"first_name"`
	Role              string   `json:"role"`
	PrimaryCategory   string   `json:"primary_category"`
	SecondaryCategory string   `json:"secondary_category"`
	SupportTags       []string `json:"support_tags"`
	Interests         []string `json:"interests"`
	AgeBracket        string   `json:"age_bracket"`
	StageDescriptor   string   `json:"stage_descriptor"`
	Recurrence        string   `json:"recurrence"`
	Available         *bool    `json:"available"`
	Building          string   `json:"building"`
	Floor             string   `json:"floor"`
	Bio               string   `json:"bio"`
}

func (req *ProfileRequest) validate() validator.ValidationErrors {
	var errs validator.ValidationErrors
	if !validator.ValidateName(req.FirstName) {
		errs.Add("first_name", "is required")
	}
	if !domain.Role(req.Role).IsValid() {
		errs.Add("role", "must be seeker or supporter")
	}
	validator.ValidateTags("support_tags", req.SupportTags, &errs)
	validator.ValidateTags("interests", req.Interests, &errs)
	return errs
}

// GetMe handles GET /me/profile
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "failed to get profile", err)
		return
	}
	response.OK(w, profile)
}

// PutMe handles PUT /me/profile
func (h *ProfileHandler) PutMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if errs := req.validate(); errs.HasErrors() {
		writeValidation(w, errs)
		return
	}

	profile, err := h.profileService.SaveProfile(r.Context(), &domain.Profile{
		ID:                userID,
		FirstName:         validator.SanitizeString(req.FirstName, validator.MaxNameLength),
		Role:              domain.Role(req.Role),
		PrimaryCategory:   validator.SanitizeString(req.PrimaryCategory, validator.MaxNameLength),
		SecondaryCategory: validator.SanitizeString(req.SecondaryCategory, validator.MaxNameLength),
		SupportTags:       req.SupportTags,
		Interests:         req.Interests,
		AgeBracket:        validator.SanitizeString(req.AgeBracket, validator.MaxTagLength),
		StageDescriptor:   validator.SanitizeString(req.StageDescriptor, validator.MaxNameLength),
		Recurrence:        validator.SanitizeString(req.Recurrence, validator.MaxNameLength),
		Available:         req.Available,
		Building:          validator.SanitizeString(req.Building, validator.MaxNameLength),
		Floor:             validator.SanitizeString(req.Floor, validator.MaxTagLength),
		Bio:               validator.SanitizeString(req.Bio, validator.MaxTextLength),
	})
	if err != nil {
		writeError(w, h.logger, "failed to save profile", err)
		return
	}
	response.OK(w, profile)
}

// SetAvailability handles PATCH /me/availability
func (h *ProfileHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	var req struct {
		Available *bool `json:"available"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Available == nil {
		response.BadRequest(w, "available is required")
		return
	}

	if err := h.profileService.SetAvailability(r.Context(), userID, *req.Available); err != nil {
		writeError(w, h.logger, "failed to set availability", err)
		return
	}
	response.OK(w, map[string]bool{"available": *req.Available})
}

// GetProfile handles GET /profiles/{userId}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserID(r.Context()); !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	targetID := chi.URLParam(r, "userId")
	if !validator.ValidateUserID(targetID) {
		response.BadRequest(w, "invalid user id")
		return
	}

	profile, err := h.profileService.GetProfile(r.Context(), targetID)
	if err != nil {
		writeError(w, h.logger, "failed to get profile", err)
		return
	}
	response.OK(w, profile)
}
