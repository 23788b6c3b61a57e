package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/podscribe/backend/internal/youtube"
)

// TranscriptFetcher is the part of youtube.Client the handler needs
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) ([]youtube.TranscriptLine, error)
}

type TranscriptHandler struct {
	fetcher TranscriptFetcher
}

func NewTranscriptHandler(fetcher TranscriptFetcher) *TranscriptHandler {
	return &TranscriptHandler{fetcher: fetcher}
}

type transcriptRequest struct {
	VideoID string `json:"videoId"`
	URL     string `json:"url"`
}

type transcriptResponse struct {
	VideoID    string                   `json:"videoId"`
	Transcript []youtube.TranscriptLine `json:"transcript"`
}

// Fetch resolves the requested video and extracts its transcript. Videos
// without usable captions yield a 404 with a stable error code so the
// frontend can distinguish "no captions" from a transient failure.
func (h *TranscriptHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := req.VideoID
	if input == "" {
		input = req.URL
	}
	if input == "" {
		jsonError(w, "videoId or url is required", http.StatusBadRequest)
		return
	}

	videoID, err := youtube.ExtractVideoID(input)
	if err != nil {
		jsonError(w, "invalid YouTube URL or video ID", http.StatusBadRequest)
		return
	}

	lines, err := h.fetcher.FetchTranscript(r.Context(), videoID)
	if err != nil {
		var unavailable *youtube.CaptionsUnavailableError
		if errors.As(err, &unavailable) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "CAPTIONS_UNAVAILABLE",
				"message": unavailable.Error(),
			})
			return
		}
		log.Printf("[transcript] extraction failed for %s: %v", videoID, err)
		jsonError(w, "failed to fetch transcript", http.StatusBadGateway)
		return
	}

	jsonResponse(w, transcriptResponse{
		VideoID:    videoID,
		Transcript: lines,
	}, http.StatusOK)
}
