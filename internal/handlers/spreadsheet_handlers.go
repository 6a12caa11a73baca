package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SpreadsheetHandler struct {
	sheets *services.SpreadsheetService
}

func NewSpreadsheetHandler(sheets *services.SpreadsheetService) *SpreadsheetHandler {
	return &SpreadsheetHandler{sheets: sheets}
}

// ExportClients downloads the visible clients as an xlsx workbook
func (h *SpreadsheetHandler) ExportClients(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	// buffered so a failed export still gets a JSON error instead of a truncated file
	var buf bytes.Buffer
	if _, err := h.sheets.Export(c.Request().Context(), s, &buf); err != nil {
		return toHTTPError(err)
	}

	name := fmt.Sprintf("clients_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportClients reads the "file" multipart field as an xlsx workbook
func (h *SpreadsheetHandler) ImportClients(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read file")
	}
	defer f.Close()

	result, err := h.sheets.Import(c.Request().Context(), s, f)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}
