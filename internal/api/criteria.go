package api

import (
	"net/http"

	"home_compare/internal/domain"
	"home_compare/internal/services/criteria"
	"home_compare/internal/services/preferences"
)

// ListCriteria handles GET /api/v1/criteria: каталог критериев и архетипы профиля.
func (h *Handler) ListCriteria(w http.ResponseWriter, r *http.Request) {
	profiles := make([]map[string]any, 0, len(domain.ProfileTypes()))
	for _, p := range domain.ProfileTypes() {
		table, _ := criteria.ProfileWeights(p)
		profiles = append(profiles, map[string]any{
			"profile_type": p,
			"weights":      table,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"criteria":         criteria.Criteria(),
		"default_criteria": criteria.DefaultCriteria(),
		"profiles":         profiles,
	})
}

// GetMyCriteria handles GET /api/v1/me/criteria.
func (h *Handler) GetMyCriteria(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.preferences.ResolvedConfiguration(r.Context(), userID))
}

// SaveMyCriteria handles PUT /api/v1/me/criteria.
func (h *Handler) SaveMyCriteria(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req saveCriteriaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}

	cfg, err := h.preferences.SaveCriteria(r.Context(), userID, req.Criteria)
	if err != nil {
		h.fail(w, r, "save criteria failed", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// CompleteOnboarding handles POST /api/v1/me/onboarding.
func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var in preferences.OnboardingInput
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}

	result, err := h.preferences.CompleteOnboarding(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, "complete onboarding failed", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
