package analyze

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/snapsight/snapsight/internal/api"
	"github.com/snapsight/snapsight/internal/auth"
	"github.com/snapsight/snapsight/internal/storage"
)

type analyzeRequest struct {
	ContentBase64 string   `json:"content_base64"`
	Filename      string   `json:"filename"`
	Mode          string   `json:"mode" validate:"omitempty,oneof=labels text"`
	MinConfidence *float64 `json:"min_confidence" validate:"omitempty,gte=0,lte=100"`
}

type Handler struct {
	svc      *Service
	validate *validator.Validate

	defaultMinConfidence float64
}

func NewHandler(svc *Service, defaultMinConfidence float64) *Handler {
	return &Handler{
		svc:                  svc,
		validate:             validator.New(),
		defaultMinConfidence: defaultMinConfidence,
	}
}

// Analyze handles the public, quota-gated route. Identity comes from request
// metadata, never from the body.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, auth.Identify(r))
}

// AdminAnalyze handles the privileged route. The admin middleware has already
// verified the caller; a missing caller means the route was wired wrong.
func (h *Handler) AdminAnalyze(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok || !caller.Privileged {
		api.HandleError(w, api.ErrForbidden)
		return
	}
	h.serve(w, r, caller)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, caller auth.CallerContext) {
	in, appErr := h.decode(r)
	if appErr != nil {
		h.setQuotaHeaders(w, caller, nil)
		api.Fail(w, appErr)
		return
	}

	result, appErr := h.svc.Process(r.Context(), caller, *in)
	if appErr != nil {
		h.setQuotaHeaders(w, caller, nil)
		api.Fail(w, appErr)
		return
	}

	h.setQuotaHeaders(w, caller, result.QuotaRemaining)
	api.JSON(w, http.StatusOK, result)
}

// decode parses either a JSON body with base64 content or a raw binary image
// body, then validates the result. Payload validation happens here, before
// the quota gate, so malformed requests never consume a unit.
func (h *Handler) decode(r *http.Request) (*Input, *api.AppError) {
	var req analyzeRequest
	var image []byte

	contentType := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "image/"), contentType == "application/octet-stream":
		raw, err := io.ReadAll(io.LimitReader(r.Body, storage.MaxImageBytes+1))
		if err != nil {
			return nil, api.NewValidationError("reading request body failed")
		}
		image = raw
		req.Filename = r.URL.Query().Get("filename")
		req.Mode = r.URL.Query().Get("mode")
		if mc := r.URL.Query().Get("min_confidence"); mc != "" {
			v, err := strconv.ParseFloat(mc, 64)
			if err != nil {
				return nil, api.NewValidationError("min_confidence must be a number")
			}
			req.MinConfidence = &v
		}
	default:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, api.NewValidationError("request body must be valid JSON")
		}
		if req.ContentBase64 == "" {
			return nil, api.NewValidationError("content_base64 is required")
		}
		raw, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			return nil, api.NewValidationError("content_base64 is not valid base64")
		}
		image = raw
	}

	if err := h.validate.Struct(req); err != nil {
		return nil, api.NewValidationError(err.Error())
	}
	if len(image) == 0 {
		return nil, storageValidationError(storage.ErrEmptyPayload)
	}
	if len(image) > storage.MaxImageBytes {
		return nil, storageValidationError(storage.ErrTooLarge)
	}

	in := &Input{
		Image:         image,
		Filename:      req.Filename,
		Mode:          req.Mode,
		MinConfidence: h.defaultMinConfidence,
	}
	if in.Mode == "" {
		in.Mode = ModeLabels
	}
	if req.MinConfidence != nil {
		in.MinConfidence = *req.MinConfidence
	}
	return in, nil
}

func storageValidationError(err error) *api.AppError {
	return api.NewValidationError(err.Error())
}

// setQuotaHeaders mirrors the gate decision into response headers on every
// terminal path of the gated routes.
func (h *Handler) setQuotaHeaders(w http.ResponseWriter, caller auth.CallerContext, remaining *int) {
	if caller.Privileged {
		w.Header().Set("X-Quota-Bypass", "same-account")
		return
	}
	if !h.svc.QuotaEnabled() {
		w.Header().Set("X-RateLimit-Limit", "disabled")
		w.Header().Set("X-RateLimit-Remaining", "disabled")
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(h.svc.QuotaLimit()))
	rem := 0
	if remaining != nil {
		rem = *remaining
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rem))
}
