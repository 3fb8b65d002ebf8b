package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"tradeledger/internal/domain"
)

// ReadResult is the outcome of reading one workbook.
type ReadResult struct {
	Rows         []domain.RawRow
	RowsRead     int // data rows in the sheet, before filtering
	RowsFiltered int // rows dropped by the status filter
}

// Reader parses uploaded workbooks.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a Reader.
func NewReader(logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger}
}

// Read parses the Orders sheet from an xlsx stream. A missing sheet or
// missing required column fails the whole file; per-row problems are left to
// the normalizer, so a structurally valid file always yields its rows.
func (r *Reader) Read(src io.Reader) (*ReadResult, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: required sheet %q not found: %w", SheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("spreadsheet: sheet %q is empty", SheetName)
	}

	header := rows[0]
	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("spreadsheet: missing required columns: %s", strings.Join(missing, ", "))
	}

	// Passthrough columns: anything in the header beyond the projected set.
	selected := make(map[string]struct{}, len(SelectedColumns))
	for _, col := range SelectedColumns {
		selected[col] = struct{}{}
	}
	var passthrough []string
	for _, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := selected[name]; !ok {
			passthrough = append(passthrough, name)
		}
	}

	result := &ReadResult{RowsRead: len(rows) - 1}

	for i, cells := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		cell := func(col string) string {
			idx, ok := colIndex[col]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}

		if !strings.Contains(strings.ToLower(cell(ColStatus)), strings.ToLower(StatusFilter)) {
			result.RowsFiltered++
			continue
		}

		row := domain.RawRow{
			Index:                rowNum,
			TransactionID:        cell(ColTransactionID),
			ExecutedAt:           cell(ColWhen),
			TradeDate:            cell(ColTradeDate),
			Symbol:               cell(ColSymbolCommodity),
			FullSymbol:           cell(ColFullSymbol),
			Description:          cell(ColCommodityDescription),
			Exchange:             cell(ColExchange),
			OrderType:            cell(ColOrderType),
			ContractExpiration:   cell(ColContractExpiration),
			Side:                 cell(ColSide),
			Quantity:             cell(ColSize),
			Price:                cell(ColPrice),
			ExchangeConfirmation: cell(ColExchangeConfirmation),
			GWOrderID:            cell(ColGWTradeID),
			OrderExecID:          cell(ColOrderExecID),
			Account:              cell(ColAccountName),
		}

		for _, name := range passthrough {
			if v := cell(name); v != "" {
				row.Extra = append(row.Extra, domain.Field{Name: name, Value: v})
			}
		}

		result.Rows = append(result.Rows, row)
	}

	r.logger.Info("workbook read",
		zap.Int("rows_read", result.RowsRead),
		zap.Int("rows_filtered", result.RowsFiltered),
		zap.Int("rows_kept", len(result.Rows)),
	)

	return result, nil
}
