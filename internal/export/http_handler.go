package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/catalog"
	"github.com/rpattn/flowlib/internal/domain"
	"github.com/rpattn/flowlib/internal/logger"
)

// Handler serves catalog exports.
type Handler struct {
	service *Service
	now     func() time.Time
}

// NewHTTPHandler wraps the service with GET /api/catalog/{kind}/export.
func NewHTTPHandler(service *Service) http.Handler {
	h := &Handler{service: service, now: time.Now}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/catalog/{kind}/export", h.handleExport)
	return mux
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	kind, ok := domain.ParseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %q", catalog.ErrUnknownKind, r.PathValue("kind")))
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+FileName(kind, h.now())+`"`)

	counter := &countingWriter{writer: w}
	rows, err := h.service.WriteCSV(r.Context(), kind, counter)
	log := logger.FromContext(r.Context(), nil)
	if err != nil {
		log.Error("catalog export failed", zap.String("kind", kind.String()), zap.Int("rows", rows), zap.Error(err))
		if counter.count == 0 {
			w.Header().Del("Content-Disposition")
			if errors.Is(err, catalog.ErrUnknownKind) {
				writeError(w, http.StatusNotFound, err.Error())
			} else {
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}
		return
	}
	log.Info("catalog exported", zap.String("kind", kind.String()), zap.Int("rows", rows), zap.Int64("bytes", counter.count))
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]string{"error": message})
}

// countingWriter tracks whether any of the body has been sent.
type countingWriter struct {
	writer io.Writer
	count  int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.writer.Write(p)
	c.count += int64(n)
	return n, err
}
