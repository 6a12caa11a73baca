package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/schedule"
)

// receiptTypes maps accepted MIME types to the extension used when the file name has none
var receiptTypes = map[string]string{
	"image/jpeg":         "jpg",
	"image/jpg":          "jpg",
	"image/png":          "png",
	"image/gif":          "gif",
	"image/webp":         "webp",
	"application/pdf":    "pdf",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
}

var errReceiptTooLarge = errors.New("file exceeds the size limit")

// ReceiptUpload is one file submitted for a client
type ReceiptUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult reports the outcome of one file in a multi-file upload
type UploadResult struct {
	FileName string          `json:"file_name"`
	Receipt  *models.Receipt `json:"receipt,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type ReceiptService struct {
	db       *gorm.DB
	storage  ObjectStorage
	maxBytes int64
	now      func() time.Time
}

func NewReceiptService(db *gorm.DB, storage ObjectStorage, maxBytes int64) *ReceiptService {
	return &ReceiptService{db: db, storage: storage, maxBytes: maxBytes, now: time.Now}
}

func (s *ReceiptService) validate(u ReceiptUpload) error {
	if _, ok := receiptTypes[strings.ToLower(u.ContentType)]; !ok {
		return fmt.Errorf("%w: file type %q is not allowed", ErrValidation, u.ContentType)
	}
	if u.Size > s.maxBytes {
		return fmt.Errorf("%w: %s", ErrValidation, errReceiptTooLarge)
	}
	return nil
}

func (s *ReceiptService) objectPath(uid string, clientID uint, u ReceiptUpload) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(u.FileName)), ".")
	if ext == "" {
		ext = receiptTypes[strings.ToLower(u.ContentType)]
	}
	random := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s/%d/%d-%s.%s", uid, clientID, s.now().UnixMilli(), random, ext)
}

// Upload stores one file and records it. The stored object is removed again if the row cannot be written.
func (s *ReceiptService) Upload(ctx context.Context, session auth.Session, clientID uint, u ReceiptUpload) (*models.Receipt, error) {
	if err := s.validate(u); err != nil {
		return nil, err
	}
	if _, err := findClient(s.db.WithContext(ctx), session, clientID); err != nil {
		return nil, err
	}

	objectPath := s.objectPath(session.UserID, clientID, u)
	body := &capReader{r: u.Body, remaining: s.maxBytes}
	if err := s.storage.Put(ctx, objectPath, body, u.ContentType); err != nil {
		_ = s.storage.Delete(ctx, objectPath)
		if errors.Is(err, errReceiptTooLarge) {
			return nil, fmt.Errorf("%w: %s", ErrValidation, errReceiptTooLarge)
		}
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	receipt := &models.Receipt{
		ClientID:   clientID,
		UserID:     session.UserID,
		FileName:   u.FileName,
		FilePath:   objectPath,
		FileSize:   body.read,
		MimeType:   u.ContentType,
		UploadedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(receipt).Error; err != nil {
		if delErr := s.storage.Delete(ctx, objectPath); delErr != nil {
			log.Error().Err(delErr).Str("path", objectPath).Msg("failed to remove orphaned receipt file")
		}
		return nil, fmt.Errorf("record receipt: %w", err)
	}
	return receipt, nil
}

// UploadMany uploads files one by one; a failure affects only that file
func (s *ReceiptService) UploadMany(ctx context.Context, session auth.Session, clientID uint, uploads []ReceiptUpload) []UploadResult {
	results := make([]UploadResult, 0, len(uploads))
	for _, u := range uploads {
		res := UploadResult{FileName: u.FileName}
		receipt, err := s.Upload(ctx, session, clientID, u)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Receipt = receipt
		}
		results = append(results, res)
	}
	return results
}

// List returns the receipts of a client, newest first
func (s *ReceiptService) List(ctx context.Context, session auth.Session, clientID uint) ([]models.Receipt, error) {
	db := s.db.WithContext(ctx)
	if _, err := findClient(db, session, clientID); err != nil {
		return nil, err
	}

	var receipts []models.Receipt
	err := db.Where("client_id = ?", clientID).Order("uploaded_at desc").Find(&receipts).Error
	return receipts, err
}

// Open returns the receipt row and a reader for its file; the caller closes the reader
func (s *ReceiptService) Open(ctx context.Context, session auth.Session, receiptID uint) (*models.Receipt, io.ReadCloser, error) {
	db := s.db.WithContext(ctx)
	receipt, err := findReceipt(db, receiptID)
	if err != nil {
		return nil, nil, err
	}
	if _, err := findClient(db, session, receipt.ClientID); err != nil {
		return nil, nil, err
	}

	r, err := s.storage.Open(ctx, receipt.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return receipt, r, nil
}

// Delete removes a receipt unless that would leave more completed installments than receipts
func (s *ReceiptService) Delete(ctx context.Context, session auth.Session, receiptID uint) error {
	var objectPath string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		receipt, err := findReceipt(tx, receiptID)
		if err != nil {
			return err
		}
		client, err := lockClient(tx, session, receipt.ClientID)
		if err != nil {
			return err
		}

		completed, err := countCompleted(tx, client.ID)
		if err != nil {
			return err
		}
		receipts, err := countReceipts(tx, client.ID)
		if err != nil {
			return err
		}
		if !schedule.CanRemoveReceipt(completed, receipts) {
			return ErrReceiptInUse
		}

		objectPath = receipt.FilePath
		return tx.Delete(receipt).Error
	})
	if err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, objectPath); err != nil {
		log.Warn().Err(err).Str("path", objectPath).Msg("failed to remove receipt file")
	}
	return nil
}

func findReceipt(db *gorm.DB, id uint) (*models.Receipt, error) {
	var receipt models.Receipt
	err := db.First(&receipt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// capReader fails once more than remaining bytes have been read
type capReader struct {
	r         io.Reader
	remaining int64
	read      int64
}

func (c *capReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, errReceiptTooLarge
	}
	return n, err
}
