// Package spreadsheet reads uploaded trade-execution workbooks, validates
// them against the orders schema, filters to filled orders, and projects the
// surviving rows into RawRow records for normalization.
package spreadsheet

// SheetName is the workbook sheet holding order transactions.
const SheetName = "Orders"

// Source column names in the uploaded workbook.
const (
	ColTransactionID        = "Orders_Transactions_TransactionID"
	ColWhen                 = "Orders_Transactions_When_Ms"
	ColStatus               = "Orders_Transactions_Status"
	ColOrderExecID          = "Orders_Transactions_OrderExecID"
	ColTradeDate            = "Orders_OrderFills_TradeDate"
	ColSymbolCommodity      = "Orders_OrderFills_SymbolCommodity"
	ColSide                 = "Orders_OrderFills_Side"
	ColSize                 = "Orders_OrderFills_Size"
	ColPrice                = "Orders_OrderFills_Price"
	ColGWTradeID            = "Orders_OrderFills_GWTradeID"
	ColCommodityDescription = "Orders_CommodityDescription"
	ColFullSymbol           = "Orders_Symbol"
	ColExchange             = "Orders_Exchange"
	ColOrderType            = "Orders_OrderType"
	ColContractExpiration   = "Orders_ContractExpiration"
	ColExchangeConfirmation = "Orders_ExchangeConfirmation"
	ColAccountName          = "Orders_AccountName"
)

// StatusFilter keeps only rows whose transaction status contains this value
// (case-insensitive). Working, cancelled, and rejected orders never reach
// normalization.
const StatusFilter = "Fill"

// RequiredColumns must all be present in the sheet header; a missing one
// fails the whole file before any row is read.
var RequiredColumns = []string{
	ColWhen,
	ColTradeDate,
	ColSymbolCommodity,
	ColPrice,
	ColSide,
	ColSize,
	ColStatus,
	ColTransactionID,
}

// SelectedColumns are projected into the fixed RawRow fields, in this
// order. Header columns outside this set are preserved as passthrough
// fields.
var SelectedColumns = []string{
	ColTransactionID,
	ColWhen,
	ColTradeDate,
	ColSymbolCommodity,
	ColFullSymbol,
	ColCommodityDescription,
	ColExchange,
	ColOrderType,
	ColContractExpiration,
	ColSide,
	ColSize,
	ColPrice,
	ColExchangeConfirmation,
	ColGWTradeID,
	ColOrderExecID,
	ColAccountName,
	ColStatus,
}
