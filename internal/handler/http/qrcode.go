package http

import (
	"log/slog"
	"net/http"
	"strconv"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/Haseeburrahmann/mandi-reviews/pkg/httputil"
)

// QR image size bounds in pixels.
const (
	qrSizeDefault = 400
	qrSizeMin     = 128
	qrSizeMax     = 1024
)

// qrDownloadName is the filename offered when download=1 is set.
const qrDownloadName = "food-review-qr-code.png"

// QRCodeHandler serves a scannable PNG code linking to the public
// review form, for printing on packaging.
type QRCodeHandler struct {
	reviewURL string
	logger    *slog.Logger
}

// NewQRCodeHandler creates a QR code handler pointing at reviewURL.
func NewQRCodeHandler(reviewURL string, logger *slog.Logger) *QRCodeHandler {
	return &QRCodeHandler{
		reviewURL: reviewURL,
		logger:    logger,
	}
}

// GetQRCode handles GET /api/v1/qr
// @Summary Review form QR code
// @Description Returns a PNG QR code linking to the review form
// @Tags qr
// @Produce png
// @Param size query int false "Image size in pixels (128-1024)" default(400)
// @Param download query int false "Set to 1 to force a file download"
// @Success 200 {file} binary
// @Router /api/v1/qr [get]
func (h *QRCodeHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	size := qrSizeDefault
	if v := r.URL.Query().Get("size"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			size = parsed
		}
	}
	if size < qrSizeMin {
		size = qrSizeMin
	}
	if size > qrSizeMax {
		size = qrSizeMax
	}

	png, err := qrcode.Encode(h.reviewURL, qrcode.Medium, size)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode QR code",
			slog.String("url", h.reviewURL),
			slog.String("error", err.Error()),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"},
		})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+qrDownloadName+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
