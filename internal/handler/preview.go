package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/chatapp/internal/markdown"
)

// maxMessageBytes bounds a previewed message.
const maxMessageBytes = 64 << 10

type previewRequest struct {
	Content string `json:"content"`
}

// PreviewHandler renders message content the way the chat UI displays it.
type PreviewHandler struct {
	renderer *markdown.Renderer
	logger   *slog.Logger
}

func NewPreviewHandler(renderer *markdown.Renderer, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{renderer: renderer, logger: logger}
}

// HandlePreview renders {"content": "..."} to {"markdown": bool, "html": "..."}.
//
// HTTP: POST /messages/preview
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMalformedBody(w)
		return
	}
	if len(req.Content) > maxMessageBytes {
		writeJSON(w, http.StatusBadRequest, validationErrors{Errors: []ValidationError{{
			Type: "field", Msg: "Message is too long", Path: "content", Location: "body",
		}}})
		return
	}

	out, err := h.renderer.Render(req.Content)
	if err != nil {
		writeTranslated(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
