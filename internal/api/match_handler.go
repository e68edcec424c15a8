package api

import (
	"net/http"
	"strconv"

	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/middleware"
	"github.com/peerlink/backend/pkg/response"
	"go.uber.org/zap"
)

type MatchHandler struct {
	matchService   *domain.MatchService
	profileService *domain.ProfileService
	logger         *zap.Logger
}

func NewMatchHandler(matchService *domain.MatchService, profileService *domain.ProfileService, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{
		matchService:   matchService,
		profileService: profileService,
		logger:         logger,
	}
}

// GetMatches handles GET /matches. The caller's stored profile is the requester.
// ?view=list returns the flat ranked list instead of tiers; ?limit caps it.
func (h *MatchHandler) GetMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "not authenticated")
		return
	}

	requester, err := h.profileService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, "failed to load requester profile", err)
		return
	}

	if r.URL.Query().Get("view") == "list" {
		ranked, err := h.matchService.RankCandidates(r.Context(), requester)
		if err != nil {
			writeError(w, h.logger, "failed to rank candidates", err)
			return
		}
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit < len(ranked) {
			ranked = ranked[:limit]
		}
		response.OK(w, ranked)
		return
	}

	tiers, err := h.matchService.RankTiers(r.Context(), requester)
	if err != nil {
		writeError(w, h.logger, "failed to rank candidates", err)
		return
	}
	response.OK(w, tiers)
}
