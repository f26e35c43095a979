package handlers

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"attendance/clock"
	"attendance/export"
	"attendance/middleware"
	"attendance/models"
	"attendance/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LogReader is the read side of the remote log.
type LogReader interface {
	FetchAll(ctx context.Context) ([]models.AttendanceLogEntry, error)
	FetchLeaves(ctx context.Context) ([]models.LeaveLogEntry, error)
}

type ExportHandler struct {
	org    string
	log    LogReader
	store  *store.Store
	clock  clock.Clock
	loc    *time.Location
	logger *zap.Logger
}

func NewExportHandler(org string, log LogReader, st *store.Store, clk clock.Clock, loc *time.Location, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{org: org, log: log, store: st, clock: clk, loc: loc, logger: logger}
}

// Report downloads the consolidated workbook built from the remote log.
func (h *ExportHandler) Report(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil || !user.CanExport() {
		writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	entries, err := h.log.FetchAll(r.Context())
	if err != nil {
		h.logger.Error("fetch attendance log", zap.Error(err))
		writeDomainError(w, r, err)
		return
	}
	leaves, err := h.log.FetchLeaves(r.Context())
	if err != nil {
		h.logger.Error("fetch leave log", zap.Error(err))
		writeDomainError(w, r, err)
		return
	}

	buf, err := export.Workbook(entries, leaves)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.logger.Info("report exported",
		zap.String("user", user.Username),
		zap.Int("entries", len(entries)),
		zap.Int("leaves", len(leaves)),
	)
	today := clock.DateKey(h.clock.Now(), h.loc)
	attachment(w, xlsxContentType, export.ReportFilename(h.org, today), buf)
}

// Daily downloads the stored day records for ?date= (default today) as
// ?format=xlsx (default) or csv.
func (h *ExportHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = clock.DateKey(h.clock.Now(), h.loc)
	}
	if _, err := clock.ParseDateKey(date); err != nil {
		writeDomainError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "csv" {
		writeError(w, r, http.StatusBadRequest, "format must be xlsx or csv")
		return
	}

	records, err := h.store.Day(r.Context(), date)
	if err != nil {
		h.logger.Error("load day", zap.String("date", date), zap.Error(err))
		writeDomainError(w, r, err)
		return
	}

	var buf *bytes.Buffer
	contentType := xlsxContentType
	if format == "csv" {
		buf = new(bytes.Buffer)
		err = export.WriteDailyCSV(buf, records)
		contentType = "text/csv"
	} else {
		buf, err = export.DailyWorkbook(records)
	}
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	attachment(w, contentType, export.DailyFilename(h.org, date, format), buf)
}

func attachment(w http.ResponseWriter, contentType, filename string, buf *bytes.Buffer) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	buf.WriteTo(w)
}
