package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/podscribe/backend/internal/metadata"
	"github.com/podscribe/backend/internal/youtube"
)

// MetadataLookup is the part of metadata.Service the handler needs
type MetadataLookup interface {
	Get(ctx context.Context, videoID string) (*metadata.Metadata, error)
}

type MetadataHandler struct {
	service MetadataLookup
}

func NewMetadataHandler(service MetadataLookup) *MetadataHandler {
	return &MetadataHandler{service: service}
}

func (h *MetadataHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "videoID")
	videoID, err := youtube.ExtractVideoID(raw)
	if err != nil {
		jsonError(w, "invalid video ID", http.StatusBadRequest)
		return
	}

	m, err := h.service.Get(r.Context(), videoID)
	if err != nil {
		log.Printf("[metadata] lookup failed for %s: %v", videoID, err)
		jsonError(w, "failed to fetch video metadata", http.StatusBadGateway)
		return
	}

	jsonResponse(w, m, http.StatusOK)
}
