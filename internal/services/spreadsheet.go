package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"installment_app_echo/internal/auth"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/schedule"
)

const (
	clientsSheet    = "Клиенты"
	noEmployeeLabel = "Не указан"
	sheetDateLayout = "02.01.2006"
)

const (
	colID             = "ID"
	colFullName       = "ФИО"
	colEmployee       = "Сотрудник"
	colEmployeeID     = "ID Сотрудника"
	colContractDate   = "Дата договора"
	colContractAmount = "Сумма договора"
	colPeriod         = "Период рассрочки (месяцы)"
	colFirstPayment   = "Первый взнос"
	colMonthlyPayment = "Ежемесячный платеж"
	colRemaining      = "Остаток к доплате"
	colTotalPaid      = "Всего выплачено"
	colDepositPaid    = "Депозит выплачен"
	colDepositTarget  = "Цель депозита"
	colPaymentDay     = "День платежа"
	colCreatedAt      = "Дата создания"
	colUpdatedAt      = "Дата обновления"
)

var exportColumns = []string{
	colID, colFullName, colEmployee, colEmployeeID, colContractDate, colContractAmount, colPeriod,
	colFirstPayment, colMonthlyPayment, colRemaining, colTotalPaid, colDepositPaid, colDepositTarget,
	colPaymentDay, colCreatedAt, colUpdatedAt,
}

var importDateLayouts = []string{"2.1.2006", "2/1/2006", "2006-1-2"}

// ImportResult counts imported rows and rows that were skipped or failed
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   int      `json:"errors"`
	Messages []string `json:"messages,omitempty"`
}

// SpreadsheetService moves clients in and out of xlsx workbooks
type SpreadsheetService struct {
	db    *gorm.DB
	cache *RedisCache
	now   func() time.Time
}

func NewSpreadsheetService(db *gorm.DB, cache *RedisCache) *SpreadsheetService {
	return &SpreadsheetService{db: db, cache: cache, now: time.Now}
}

// Export writes the visible clients, newest first, as a single-sheet workbook
func (s *SpreadsheetService) Export(ctx context.Context, session auth.Session, w io.Writer) (int, error) {
	db := s.db.WithContext(ctx)

	var clients []models.Client
	if err := db.Scopes(visibleTo(session)).Order("created_at desc").Find(&clients).Error; err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(clients))
	for _, c := range clients {
		if c.EmployeeID != "" {
			ids = append(ids, c.EmployeeID)
		}
	}
	names, err := profileNames(ctx, db, ids)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", clientsSheet); err != nil {
		return 0, err
	}

	for i, header := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(clientsSheet, cell, header)
	}

	for i, c := range clients {
		employee := names[c.EmployeeID]
		if employee == "" {
			employee = noEmployeeLabel
		}
		values := []interface{}{
			c.ID, c.FullName, employee, c.EmployeeID, c.ContractDate.Format(sheetDateLayout),
			c.ContractAmount, c.InstallmentPeriod, c.FirstPayment, c.MonthlyPayment, c.RemainingAmount,
			c.TotalPaid, c.DepositPaid, c.DepositTarget, c.PaymentDay,
			c.CreatedAt.Format(sheetDateLayout), c.UpdatedAt.Format(sheetDateLayout),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(clientsSheet, cell, v)
		}
	}

	f.SetColWidth(clientsSheet, "A", "A", 8)
	f.SetColWidth(clientsSheet, "B", "D", 28)
	f.SetColWidth(clientsSheet, "E", "P", 18)

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(clients), nil
}

// Import reads clients from the first sheet of a workbook. Each row is inserted on its own;
// a bad row is counted as an error and the rest continue.
func (s *SpreadsheetService) Import(ctx context.Context, session auth.Session, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable workbook", ErrValidation)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrValidation)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &ImportResult{}, nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}

	employees, err := s.employeeDirectory(ctx)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for n, row := range rows[1:] {
		line := n + 2
		get := func(col string) string {
			idx, ok := header[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if isBlankRow(row) {
			continue
		}

		client, err := s.clientFromRow(get, session, employees)
		if err != nil {
			result.Errors++
			result.Messages = append(result.Messages, fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
			log.Error().Err(err).Int("row", line).Msg("failed to import client")
			result.Errors++
			result.Messages = append(result.Messages, fmt.Sprintf("row %d: insert failed", line))
			continue
		}
		result.Imported++
	}

	if result.Imported > 0 {
		invalidateMetrics(ctx, s.cache)
	}
	return result, nil
}

type employeeDirectory struct {
	byID   map[string]bool
	byName map[string]string
}

func (s *SpreadsheetService) employeeDirectory(ctx context.Context) (*employeeDirectory, error) {
	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Find(&profiles).Error; err != nil {
		return nil, err
	}
	dir := &employeeDirectory{byID: map[string]bool{}, byName: map[string]string{}}
	for _, p := range profiles {
		dir.byID[p.UserID] = true
		if p.FullName != "" {
			dir.byName[p.FullName] = p.UserID
		}
	}
	return dir, nil
}

// resolve picks the assignee: a known employee id, else a known employee name, else the importer
func (d *employeeDirectory) resolve(id, name, fallback string) string {
	if id != "" {
		if d.byID[id] {
			return id
		}
		return fallback
	}
	if name != "" && name != noEmployeeLabel {
		if uid, ok := d.byName[name]; ok {
			return uid
		}
	}
	return fallback
}

func (s *SpreadsheetService) clientFromRow(get func(string) string, session auth.Session, employees *employeeDirectory) (*models.Client, error) {
	name := get(colFullName)
	if name == "" {
		return nil, errors.New("full name is missing")
	}
	amount := parseNumber(get(colContractAmount))
	if amount <= 0 {
		return nil, errors.New("contract amount is missing")
	}
	period := int(parseNumber(get(colPeriod)))
	if period <= 0 {
		return nil, errors.New("installment period is missing")
	}

	first := parseNumber(get(colFirstPayment))
	monthly := parseNumber(get(colMonthlyPayment))
	if monthly <= 0 {
		monthly = schedule.MonthlyPayment(amount, first, period)
	}
	target := parseNumber(get(colDepositTarget))
	if target <= 0 {
		target = models.DefaultDepositTarget
	}
	day := int(parseNumber(get(colPaymentDay)))
	if day < 1 || day > 31 {
		day = 1
	}

	employee := session.UserID
	if session.IsAdmin() {
		employee = employees.resolve(get(colEmployeeID), get(colEmployee), session.UserID)
	}

	return &models.Client{
		FullName:          name,
		ContractDate:      s.parseDate(get(colContractDate)),
		ContractAmount:    amount,
		InstallmentPeriod: period,
		FirstPayment:      first,
		MonthlyPayment:    monthly,
		RemainingAmount:   parseNumber(get(colRemaining)),
		TotalPaid:         parseNumber(get(colTotalPaid)),
		DepositPaid:       parseNumber(get(colDepositPaid)),
		DepositTarget:     target,
		PaymentDay:        day,
		OwnerID:           session.UserID,
		EmployeeID:        employee,
	}, nil
}

// parseDate accepts DD.MM.YYYY, DD/MM/YYYY, YYYY-MM-DD and spreadsheet serial dates; anything else is today
func (s *SpreadsheetService) parseDate(value string) time.Time {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t
		}
	}
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseNumber reads "120000", "120 000" or "1200,50"; unreadable or non-finite values are zero
func parseNumber(value string) float64 {
	value = strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(value)
	if value == "" {
		return 0
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
