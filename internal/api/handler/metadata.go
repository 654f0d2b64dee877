package handler

import (
	"net/http"

	"github.com/apexgps/apexgps/internal/api/models"
	"github.com/apexgps/apexgps/internal/api/response"
	"github.com/apexgps/apexgps/internal/routing"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// ListPreferences handles GET /v1/metadata/preferences - list the available
// routing preference profiles.
func (h *MetadataHandler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	prefs := routing.Preferences()

	list := models.PreferenceList{
		Preferences: make([]models.PreferenceProfile, 0, len(prefs)),
	}
	for _, p := range prefs {
		profile, err := routing.ProfileFor(p)
		if err != nil {
			continue
		}
		list.Preferences = append(list.Preferences, models.PreferenceProfile{
			Name:            string(profile.Name),
			Description:     profile.Description,
			MinPOIStops:     profile.MinPOIs,
			MaxPOIStops:     profile.MaxPOIs,
			MaxPOIDistanceM: profile.MaxPOIDistanceM,
		})
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	response.JSON(w, r, http.StatusOK, list)
}
