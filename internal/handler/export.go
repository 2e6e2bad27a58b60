package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/garlicdoggoe/astrosynergy/internal/analytics"
	"github.com/garlicdoggoe/astrosynergy/internal/models"
	"github.com/garlicdoggoe/astrosynergy/internal/service"
	"github.com/garlicdoggoe/astrosynergy/internal/util"
)

// ExportHandler downloads trades as CSV or XLSX, one column per custom
// column after the fixed ones.
type ExportHandler struct {
	Trades    *service.TradeService
	Columns   *service.ColumnService
	Analytics *service.AnalyticsService
}

func NewExportHandler(svc *service.Services) *ExportHandler {
	return &ExportHandler{
		Trades:    svc.Trades,
		Columns:   svc.Columns,
		Analytics: svc.Analytics,
	}
}

var exportHeaders = []string{"Date", "Time", "Ticker", "Direction", "Profit/Loss", "Outcome", "Note"}

// exportRows builds the header and data rows, oldest trade first.
func (h *ExportHandler) exportRows(c *gin.Context) ([][]string, bool) {
	user, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	ctx := c.Request.Context()

	r, err := h.Analytics.ResolveRange(rangeQuery(c))
	if err != nil {
		util.Fail(c, err, "invalid range")
		return nil, false
	}
	trades, err := h.Trades.ListInRange(ctx, user.ID, r)
	if err != nil {
		util.Fail(c, err, "failed to load trades")
		return nil, false
	}
	cols, err := h.Columns.List(ctx, user.ID)
	if err != nil {
		util.Fail(c, err, "failed to load columns")
		return nil, false
	}

	return buildExportRows(analytics.Chronological(trades), cols, h.Analytics.Classifier()), true
}

func buildExportRows(trades []models.Trade, cols []models.CustomColumn, cls analytics.Classifier) [][]string {
	header := append([]string{}, exportHeaders...)
	for _, col := range cols {
		header = append(header, col.Name)
	}
	rows := make([][]string, 0, len(trades)+1)
	rows = append(rows, header)
	for _, t := range trades {
		row := []string{
			t.Date,
			t.Time,
			t.Ticker,
			t.Direction,
			t.ProfitLoss.StringFixed(2),
			string(cls.Outcome(t.ProfitLoss)),
			t.Note,
		}
		data := t.CustomData.Data()
		for _, col := range cols {
			row = append(row, data[col.ID].String())
		}
		rows = append(rows, row)
	}
	return rows
}

// ExportCSV 导出交易为 CSV
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	rows, ok := h.exportRows(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"trades_%s.csv\"",
		h.Analytics.Today().Format("20060102")))
	c.Status(http.StatusOK)

	// UTF-8 BOM，Excel 才能正确识别
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(c.Writer)
	_ = w.WriteAll(rows)
}

const exportSheet = "Trades"

// ExportXLSX 导出交易为 XLSX
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	rows, ok := h.exportRows(c)
	if !ok {
		return
	}

	f, err := buildWorkbook(rows)
	if err != nil {
		util.Fail(c, err, "failed to build workbook")
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"trades_%s.xlsx\"",
		h.Analytics.Today().Format("20060102")))
	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

func buildWorkbook(rows [][]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		vals := make([]any, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(exportSheet, cell, &vals); err != nil {
			return nil, err
		}
	}

	// Profit/Loss 列写成数字，方便在表格里求和
	for i := 1; i < len(rows); i++ {
		cell, _ := excelize.CoordinatesToCellName(5, i+1)
		if v, err := parseFloat(rows[i][4]); err == nil {
			_ = f.SetCellFloat(exportSheet, cell, v, 2, 64)
		}
	}

	if len(rows) > 0 {
		last, _ := excelize.ColumnNumberToName(len(rows[0]))
		_ = f.SetColWidth(exportSheet, "A", last, 14)
		_ = f.SetColWidth(exportSheet, "G", "G", 40)
		_ = f.SetPanes(exportSheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return f, nil
}

func parseFloat(s string) (float64, error) {
	var v float64
	_, err := fmt.Sscan(s, &v)
	return v, err
}
