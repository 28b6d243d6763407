package host

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/interprelab/go-offline-cache/pkg/interfaces/logger"
	"github.com/interprelab/go-offline-cache/pkg/offline"
)

// MaxRequestBody caps the body forwarded for pass-through requests.
const MaxRequestBody = 10 << 20

var errBodyTooLarge = errors.New("host: request body too large")

// Handler serves intercepted requests through the offline controller.
type Handler struct {
	ctrl   *offline.Controller
	logger logger.Logger
}

// NewHandler wraps ctrl as an http.Handler.
func NewHandler(ctrl *offline.Controller, l logger.Logger) *Handler {
	if l == nil {
		l = &logger.Nop{}
	}
	return &Handler{ctrl: ctrl, logger: l}
}

var _ http.Handler = (*Handler)(nil)

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, err := ToRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, errBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, err.Error(), status)
		return
	}
	resp, err := h.ctrl.Fetch(r.Context(), req)
	if err != nil {
		h.logger.Warn("pass-through request failed",
			logger.F("method", req.Method),
			logger.F("path", req.Path()),
			logger.F("error", err),
		)
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	WriteResponse(w, resp)
}

// ToRequest converts an incoming request into an offline.Request.
func ToRequest(r *http.Request) (*offline.Request, error) {
	req, err := offline.NewRequest(r.Method, r.URL.RequestURI())
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	req.Destination = destination(r.Header)
	if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBody+1))
		if err != nil {
			return nil, err
		}
		if len(body) > MaxRequestBody {
			return nil, errBodyTooLarge
		}
		req.Body = body
	}
	return req, nil
}

// WriteResponse copies resp onto w. Framing headers are recomputed.
func WriteResponse(w http.ResponseWriter, resp *offline.Response) {
	header := w.Header()
	for key, values := range resp.Header {
		switch http.CanonicalHeaderKey(key) {
		case "Content-Length", "Transfer-Encoding", "Connection":
			continue
		}
		header[key] = append([]string(nil), values...)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func destination(header http.Header) offline.Destination {
	if dest := strings.ToLower(strings.TrimSpace(header.Get("Sec-Fetch-Dest"))); dest != "" && dest != "empty" {
		return offline.Destination(dest)
	}
	accept := strings.ToLower(header.Get("Accept"))
	switch {
	case strings.HasPrefix(accept, "image/"):
		return offline.DestinationImage
	case strings.Contains(accept, "text/html"):
		return offline.DestinationDocument
	default:
		return offline.DestinationEmpty
	}
}
