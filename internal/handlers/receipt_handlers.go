package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"installment_app_echo/internal/logger"
	"installment_app_echo/internal/services"
)

type ReceiptHandler struct {
	receipts *services.ReceiptService
}

func NewReceiptHandler(receipts *services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// UploadReceipts stores every file sent in the "files" multipart field and reports per-file results
func (h *ReceiptHandler) UploadReceipts(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	clientID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
	}

	uploads := make([]services.ReceiptUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("cannot read %s", fh.Filename))
		}
		defer f.Close()

		uploads = append(uploads, services.ReceiptUpload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
	}

	results := h.receipts.UploadMany(c.Request().Context(), s, clientID, uploads)

	stored := 0
	for _, r := range results {
		if r.Error == "" {
			stored++
		}
	}
	status := http.StatusCreated
	if stored == 0 {
		status = http.StatusBadRequest
	}
	return c.JSON(status, map[string]interface{}{
		"uploaded": stored,
		"results":  results,
	})
}

func (h *ReceiptHandler) ListReceipts(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	clientID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	receipts, err := h.receipts.List(c.Request().Context(), s, clientID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, receipts)
}

// DownloadReceipt streams the stored file under its original name
func (h *ReceiptHandler) DownloadReceipt(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	receipt, body, err := h.receipts.Open(c.Request().Context(), s, id)
	if err != nil {
		return toHTTPError(err)
	}
	defer body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": receipt.FileName})
	c.Response().Header().Set(echo.HeaderContentDisposition, disposition)
	c.Response().Header().Set(echo.HeaderContentType, receipt.MimeType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := io.Copy(c.Response(), body); err != nil {
		userLog := logger.WithUserID(s.UserID)
		userLog.Error().Err(err).Uint("receipt_id", id).Msg("Failed to stream receipt")
	}
	return nil
}

func (h *ReceiptHandler) DeleteReceipt(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.receipts.Delete(c.Request().Context(), s, id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
