package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/scribed/internal/hotwords"
)

// HotwordsHandler exposes the vocabulary registry for runtime inspection
// and editing.
type HotwordsHandler struct {
	reg *hotwords.Registry
	log zerolog.Logger
}

// NewHotwordsHandler creates the hotwords endpoints handler.
func NewHotwordsHandler(reg *hotwords.Registry, log zerolog.Logger) *HotwordsHandler {
	return &HotwordsHandler{reg: reg, log: log.With().Str("handler", "hotwords").Logger()}
}

// Routes registers the hotwords endpoints.
func (h *HotwordsHandler) Routes(r chi.Router) {
	r.Get("/hotwords", h.List)
	r.Post("/hotwords", h.Add)
	r.Delete("/hotwords", h.Remove)
}

type hotwordsRequest struct {
	Hotwords []string `json:"hotwords"`
	Persist  bool     `json:"persist,omitempty"`
}

// List handles GET /api/v1/hotwords.
func (h *HotwordsHandler) List(w http.ResponseWriter, r *http.Request) {
	terms := h.reg.Terms()
	WriteJSON(w, http.StatusOK, map[string]any{
		"hotwords": terms,
		"count":    len(terms),
	})
}

// Add handles POST /api/v1/hotwords. Duplicates are skipped; the response
// reports how many terms were actually inserted. With persist=true the
// registry is saved to its backing file afterward.
func (h *HotwordsHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req hotwordsRequest
	if err := DecodeJSON(r, &req); err != nil || len(req.Hotwords) == 0 {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "expected a non-empty hotwords array")
		return
	}

	added := h.reg.AddMany(req.Hotwords)
	if req.Persist {
		if err := h.reg.SaveFile(""); err != nil {
			h.log.Warn().Err(err).Msg("failed to persist hotwords")
		}
	}

	h.log.Info().Int("added", added).Int("total", h.reg.Len()).Msg("hotwords added")
	WriteJSON(w, http.StatusOK, map[string]any{
		"added": added,
		"count": h.reg.Len(),
	})
}

// Remove handles DELETE /api/v1/hotwords.
func (h *HotwordsHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req hotwordsRequest
	if err := DecodeJSON(r, &req); err != nil || len(req.Hotwords) == 0 {
		WriteErrorWithCode(w, http.StatusBadRequest, ErrInvalidBody, "expected a non-empty hotwords array")
		return
	}

	removed := 0
	for _, term := range req.Hotwords {
		if h.reg.Remove(term) {
			removed++
		}
	}
	if req.Persist {
		if err := h.reg.SaveFile(""); err != nil {
			h.log.Warn().Err(err).Msg("failed to persist hotwords")
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"count":   h.reg.Len(),
	})
}
