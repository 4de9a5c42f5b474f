package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/quidfin/web/internal/web/store"
	"github.com/quidfin/web/pkg/slogx"
)

// cspReportBody is the envelope browsers post to report-uri endpoints.
// The inner object keys follow the CSP reporting spec's kebab-case names.
type cspReportBody struct {
	Report *cspReportFields `json:"csp-report"`
}

type cspReportFields struct {
	DocumentURI        string `json:"document-uri"`
	ViolatedDirective  string `json:"violated-directive"`
	EffectiveDirective string `json:"effective-directive"`
	BlockedURI         string `json:"blocked-uri"`
	OriginalPolicy     string `json:"original-policy"`
}

const maxCSPReportBytes = 64 << 10

// handleCSPReport receives browser CSP violation reports. Reports are logged
// and stored for later inspection; the browser only cares that we answered,
// so well-formed reports always get 204 even when the envelope is missing
// its payload.
func (rt *Router) handleCSPReport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCSPReportBytes))
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var envelope cspReportBody
	if err := json.Unmarshal(body, &envelope); err != nil {
		slogx.FromContext(r.Context()).Error("unparseable csp report", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	logger := slogx.FromContext(r.Context())
	if envelope.Report == nil {
		logger.Warn("csp report without csp-report payload")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	logger.Warn("csp violation",
		"document_uri", envelope.Report.DocumentURI,
		"violated_directive", envelope.Report.ViolatedDirective,
		"blocked_uri", envelope.Report.BlockedURI,
	)

	if rt.CSPReports != nil {
		report := store.CSPReport{
			DocumentURI:       envelope.Report.DocumentURI,
			ViolatedDirective: envelope.Report.ViolatedDirective,
			BlockedURI:        envelope.Report.BlockedURI,
			Raw:               string(body),
		}
		if err := rt.CSPReports.Insert(r.Context(), report); err != nil {
			// Storage trouble should not make browsers retry the report.
			logger.Error("csp report insert failed", "err", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
