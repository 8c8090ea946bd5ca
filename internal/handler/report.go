package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

type ReportHandler struct {
	Repo repository.ReportRepository
}

func (h ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/summary", h.summary)
	r.Get("/reports/top-menus", h.topMenus)
	r.Get("/reports/shifts", h.shifts)
	r.Get("/reports/shifts/export", h.exportShifts)
}

func (h ReportHandler) summary(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date filter")
		return
	}
	s, err := h.Repo.Summary(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"totalSales":  s.TotalSales,
		"totalCash":   s.TotalCash,
		"totalCard":   s.TotalCard,
		"totalQr":     s.TotalQR,
		"orderCount":  s.OrderCount,
		"cancelCount": s.CancelCount,
	})
}

func (h ReportHandler) topMenus(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date filter")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	items, err := h.Repo.TopMenus(r.Context(), from, to, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(items))
	for _, it := range items {
		resp = append(resp, map[string]any{
			"name":   it.Name,
			"amount": it.Amount,
			"qty":    it.Qty,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ReportHandler) shifts(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date filter")
		return
	}
	shifts, err := h.Repo.ClosedShifts(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]map[string]any, 0, len(shifts))
	for _, s := range shifts {
		resp = append(resp, toShiftResponse(s, nil))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h ReportHandler) exportShifts(w http.ResponseWriter, r *http.Request) {
	from, to, err := dateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date filter")
		return
	}
	shifts, err := h.Repo.ClosedShifts(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	data, err := exportShiftsXLSX(shifts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	suffix := fmt.Sprintf("%s_%s", from.Format("20060102"), to.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"shift_closings_%s.xlsx\"", suffix))
	_, _ = w.Write(data)
}

func exportShiftsXLSX(shifts []domain.Shift) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Shift Closings"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{"ID", "Operator", "Opened", "Closed", "Starting Cash", "Expected Cash", "Ending Cash", "Discrepancy", "Notes"}
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, s := range shifts {
		row := r + 2
		closedAt := ""
		if s.ClosedAt != nil {
			closedAt = s.ClosedAt.Format(time.RFC3339)
		}
		values := []any{
			s.ID,
			s.OperatorName,
			s.OpenedAt.Format(time.RFC3339),
			closedAt,
			s.StartingCash,
			derefInt64(s.ExpectedCash),
			derefInt64(s.EndingCash),
			derefInt64(s.Discrepancy),
			s.Notes,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "D", 22)
	_ = f.SetColWidth(sheet, "E", "H", 16)
	_ = f.SetColWidth(sheet, "I", "I", 32)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "I1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
