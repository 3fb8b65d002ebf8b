package domain

// RawRow is one spreadsheet row after schema validation and column
// projection, before normalization. All values are kept as the cell text;
// the normalizer owns parsing. Extra holds passthrough columns in their
// source order.
type RawRow struct {
	Index int // 1-based row number in the source sheet, for error reporting

	TransactionID        string
	ExecutedAt           string // raw execution timestamp cell
	TradeDate            string
	Symbol               string // raw commodity symbol
	FullSymbol           string
	Description          string
	Exchange             string
	OrderType            string
	ContractExpiration   string
	Side                 string
	Quantity             string
	Price                string
	ExchangeConfirmation string
	GWOrderID            string
	OrderExecID          string
	Account              string

	Extra []Field
}
