package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ceycent/internal/activity"
	"ceycent/internal/core"
	"ceycent/internal/log"
	"ceycent/internal/report"
	"ceycent/internal/session"
	"ceycent/internal/sheets"
	"ceycent/internal/shell"
)

type reportPage struct {
	Layout        shell.Layout
	Report        report.View
	ExportEnabled bool
}

type exportNotice struct {
	Month string
	Sheet string
	Rows  int
}

func (s *Server) exportEnabled() bool {
	_, disabled := s.exporter.(sheets.Disabled)
	return !disabled
}

// viewerFor returns the report viewer of the signed-in session.
func (s *Server) viewerFor(ctx context.Context) (*report.Viewer, session.Session) {
	sess, _ := session.FromContext(ctx)
	return s.reports.Viewer(sess.ID, sess.Token), sess
}

// handleReport mounts the report: the month from ?month= when valid,
// otherwise the current month, and one fetch cycle.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, err := ParseMonthSelection(r.URL.Query())
	if err != nil && !errors.Is(err, ErrNoMonth) {
		log.FromContext(ctx).WithComponent(log.ComponentReport).DebugContext(ctx, "Ignoring invalid month on mount",
			log.NewFields().WithError(err).ToSlice()...)
		month = core.Month{}
	}

	viewer, _ := s.viewerFor(ctx)
	viewer.Mount(ctx, month)

	view := viewer.Snapshot()
	s.render(w, r, "report.html", http.StatusOK, reportPage{
		Layout:        s.shell.LayoutFor(r, "/report"),
		Report:        view,
		ExportEnabled: s.exportEnabled(),
	})
}

// handleReportPartial changes the selected month. Picking the month already
// shown re-renders without fetching.
func (s *Server) handleReportPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month, err := ParseMonthSelection(r.URL.Query())
	if err != nil {
		BadRequestError("Select a valid month").Write(w)
		return
	}

	viewer, sess := s.viewerFor(ctx)
	fetched := viewer.SelectMonth(ctx, month)
	log.FromContext(ctx).WithComponent(log.ComponentReport).DebugContext(ctx, "Month selected",
		log.NewFields().
			WithSessionID(sess.ID).
			WithMonth(month.Year, int(month.Month)).
			WithOperation(log.OpSelect).
			ToSlice()...)

	view := viewer.Snapshot()
	page := reportPage{Report: view, ExportEnabled: s.exportEnabled()}
	s.render(w, r, "report-body", http.StatusOK, page, func(b *HTMXResponseBuilder) {
		if fetched {
			b.TriggerReportLoaded(view.MonthValue)
		}
	})
}

// handleReportExport writes the report currently on screen to the
// configured spreadsheet.
func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentSheets)

	if !s.exportEnabled() {
		NewHTMXResponse().
			Status(http.StatusServiceUnavailable).
			TriggerErrorNotification("Report export is not configured").
			Write(w)
		return
	}

	sess, _ := session.FromContext(ctx)
	viewer, ok := s.reports.Lookup(sess.ID)
	if !ok {
		ConflictError("Open the report before exporting it").Write(w)
		return
	}
	rep, ok := viewer.Report()
	if !ok {
		ConflictError("The report is still loading").Write(w)
		return
	}

	result, err := s.exporter.ExportReport(ctx, rep, s.location)
	if err != nil {
		logger.ErrorContext(ctx, "Report export failed",
			log.NewFields().
				WithSessionID(sess.ID).
				WithMonth(rep.Month.Year, int(rep.Month.Month)).
				WithOperation(log.OpExport).
				WithError(err).
				ToSlice()...)
		NewHTMXResponse().
			Status(http.StatusBadGateway).
			TriggerErrorNotification("Report export failed").
			Write(w)
		return
	}

	e := activity.NewEvent(activity.KindReportExported)
	e.SessionID = sess.ID
	e.Username = sess.Username
	e.Month = rep.Month.String()
	e.Detail = fmt.Sprintf("sheet=%s rows=%d", result.SheetTitle, result.Rows)
	activity.Emit(ctx, s.publisher, e, logger)

	notice := exportNotice{Month: rep.Month.Label(), Sheet: result.SheetTitle, Rows: result.Rows}
	s.render(w, r, "export-result", http.StatusOK, notice, func(b *HTMXResponseBuilder) {
		b.TriggerReportExported(rep.Month.String(), result.SheetTitle).
			TriggerSuccessNotification(fmt.Sprintf("%s exported to %s", rep.Month.Label(), result.SheetTitle))
	})
}
