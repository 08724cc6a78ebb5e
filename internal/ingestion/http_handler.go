package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rpattn/flowlib/internal/auth"
	"github.com/rpattn/flowlib/internal/catalog"
	"github.com/rpattn/flowlib/internal/domain"
	"github.com/rpattn/flowlib/internal/logger"
)

const defaultMaxUploadBytes int64 = 32 << 20

// Handler exposes imports and catalog reads over HTTP.
type Handler struct {
	service        *Service
	maxUploadBytes int64
	adminToken     string
	logger         *zap.Logger
}

// HandlerOption customizes a Handler.
type HandlerOption func(*Handler)

// WithMaxUploadBytes caps the size of a request body.
func WithMaxUploadBytes(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.maxUploadBytes = limit
		}
	}
}

// WithAdminToken guards commits with token.
func WithAdminToken(token string) HandlerOption {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// WithHandlerLogger sets the fallback logger for failed requests.
func WithHandlerLogger(log *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.logger = log
		}
	}
}

// NewHTTPHandler wraps the service with the import and catalog routes.
func NewHTTPHandler(service *Service, opts ...HandlerOption) http.Handler {
	h := &Handler{
		service:        service,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/import/{kind}/preview", h.preview)
	mux.Handle("POST /api/import/{kind}", auth.RequireAdminToken(h.adminToken)(http.HandlerFunc(h.commit)))
	mux.HandleFunc("GET /api/import/{kind}/template", h.template)
	mux.HandleFunc("GET /api/import/{kind}/logs", h.logs)
	mux.HandleFunc("GET /api/catalog/{kind}", h.records)
	return mux
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.readRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer cleanup()

	result, err := h.service.Preview(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	req, cleanup, err := h.readRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer cleanup()

	report, err := h.service.Commit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) template(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	body, err := h.service.Template(kind)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+kind.String()+`_template.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) logs(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, offset := pageParams(r)
	entries, err := h.service.Logs(r.Context(), kind, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) records(w http.ResponseWriter, r *http.Request) {
	kind, err := pathKind(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, offset := pageParams(r)
	records, err := h.service.Records(r.Context(), kind, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// readRequest extracts the kind, the uploaded file and the sheet link. The
// returned cleanup closes the upload.
func (h *Handler) readRequest(w http.ResponseWriter, r *http.Request) (Request, func(), error) {
	noop := func() {}
	kind, err := pathKind(r)
	if err != nil {
		return Request{}, noop, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return Request{}, noop, &formError{err: err}
	}

	req := Request{
		Kind:     kind,
		SheetURL: strings.TrimSpace(r.FormValue("sheet_url")),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		req.FileName = header.Filename
		req.Data = file
		return req, func() { _ = file.Close() }, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return req, noop, nil
	default:
		return Request{}, noop, &formError{err: err}
	}
}

// formError marks a request body that could not be decoded as a form.
type formError struct {
	err error
}

func (e *formError) Error() string {
	return "invalid form data: " + e.err.Error()
}

func (e *formError) Unwrap() error {
	return e.err
}

func pathKind(r *http.Request) (domain.Kind, error) {
	raw := r.PathValue("kind")
	kind, ok := domain.ParseKind(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", catalog.ErrUnknownKind, raw)
	}
	return kind, nil
}

func pageParams(r *http.Request) (int, int) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	return limit, offset
}

func statusFor(err error) int {
	var (
		malformedErr *MalformedInputError
		formErr      *formError
		tooLarge     *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, catalog.ErrUnknownKind):
		return http.StatusNotFound
	case errors.Is(err, ErrSheetFetch):
		return http.StatusBadGateway
	case errors.As(err, &malformedErr),
		errors.As(err, &formErr),
		errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrMissingInput),
		errors.Is(err, ErrSheetCommitUnsupported),
		errors.Is(err, ErrInvalidSheetURL),
		errors.Is(err, multipart.ErrMessageTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()

	log := logger.FromContext(r.Context(), h.logger)
	if status >= http.StatusInternalServerError {
		log.Error("import request failed", zap.Int("status", status), zap.Error(err))
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	} else {
		log.Debug("import request rejected", zap.Int("status", status), zap.Error(err))
	}

	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
