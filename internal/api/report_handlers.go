package api

import (
	"net/http"

	"github.com/hackgods/spa-agenda/internal/logger"
	"github.com/hackgods/spa-agenda/internal/report"
)

func reportHandler(svc ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReportRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		from, err := parseDate(req.From)
		if err != nil {
			handleError(w, r, err)
			return
		}
		to, err := parseDate(req.To)
		if err != nil {
			handleError(w, r, err)
			return
		}
		format, err := report.ParseFormat(req.Format)
		if err != nil {
			handleError(w, r, err)
			return
		}

		rows, err := svc.Rows(r.Context(), from, to)
		if err != nil {
			handleError(w, r, err)
			return
		}

		if format == report.FormatJSON {
			writeJSON(w, r, http.StatusOK, rows)
			return
		}

		w.Header().Set("Content-Type", report.ContentTypeXLSX)
		w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(from, to, format)+`"`)
		w.WriteHeader(http.StatusOK)
		if err := report.WriteXLSX(w, rows); err != nil {
			// The status line is already written.
			loggerFrom(r.Context()).Error("write report", logger.Err(err))
		}
	}
}
