package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/export"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

type ExportRecorder interface {
	LeadExported(format string)
}

type AnalyticsHandler struct {
	analytics *usecase.AnalyticsUseCase
	exports   ExportRecorder
	logger    *zap.Logger
}

func NewAnalyticsHandler(analytics *usecase.AnalyticsUseCase, exports ExportRecorder, logger *zap.Logger) *AnalyticsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsHandler{analytics: analytics, exports: exports, logger: logger}
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("dashboard failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

// Export streams every lead as a CSV or XLSX attachment.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = export.FormatCSV
	}

	out := &trackingWriter{w: w}
	xw, err := export.New(format, out)
	if err != nil {
		if errors.Is(err, export.ErrUnsupportedFormat) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "VALIDATION_ERROR", Message: "format must be one of: csv, xlsx"})
			return
		}
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(format)+`"`)

	err = h.analytics.ExportRows(r.Context(), xw.Write)
	if err == nil {
		err = xw.Close()
	}
	if err != nil {
		h.logger.Error("export failed", zap.String("format", format), zap.Error(err))
		if !out.wrote {
			w.Header().Del("Content-Disposition")
			writeError(w, err)
		}
		return
	}

	if h.exports != nil {
		h.exports.LeadExported(format)
	}
}

// trackingWriter remembers whether any byte reached the client, after which
// an error response can no longer be sent.
type trackingWriter struct {
	w     io.Writer
	wrote bool
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	if len(p) > 0 {
		t.wrote = true
	}
	return t.w.Write(p)
}
