package dynamo

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradeledger/internal/domain"
)

// executionItem is the DynamoDB shape of an execution. Decimal fields are
// stored as strings to keep exact values across the wire.
type executionItem struct {
	UserID               string         `dynamodbav:"userId"`
	TransactionID        int64          `dynamodbav:"transactionId"`
	CanonicalTicker      string         `dynamodbav:"canonicalTicker"`
	RawSymbol            string         `dynamodbav:"rawSymbol"`
	FullSymbol           string         `dynamodbav:"fullSymbol"`
	Description          string         `dynamodbav:"description,omitempty"`
	Exchange             string         `dynamodbav:"exchange,omitempty"`
	Side                 string         `dynamodbav:"side"`
	Quantity             string         `dynamodbav:"quantity"`
	PositionEffect       string         `dynamodbav:"positionEffect"`
	ExecutionPrice       string         `dynamodbav:"executionPrice"`
	OrderType            string         `dynamodbav:"orderType,omitempty"`
	Account              string         `dynamodbav:"account,omitempty"`
	Date                 string         `dynamodbav:"date"`
	Time                 string         `dynamodbav:"time"`
	TradingDay           string         `dynamodbav:"tradingDay"`
	WeekNum              int            `dynamodbav:"weekNum"`
	ContractExpiration   string         `dynamodbav:"contractExpiration,omitempty"`
	ExchangeConfirmation string         `dynamodbav:"exchangeConfirmation,omitempty"`
	GWOrderID            string         `dynamodbav:"gwOrderId,omitempty"`
	OrderExecID          string         `dynamodbav:"orderExecId,omitempty"`
	NotionalValue        string         `dynamodbav:"notionalValue"`
	Fee                  string         `dynamodbav:"fee"`
	PositionQtyAfter     string         `dynamodbav:"positionQtyAfter"`
	LifecycleStatus      string         `dynamodbav:"lifecycleStatus,omitempty"`
	RealizedPnL          *string        `dynamodbav:"realizedPnl,omitempty"`
	Extra                []domain.Field `dynamodbav:"extra,omitempty"`
	QualityFlags         []string       `dynamodbav:"qualityFlags,omitempty"`
}

func fromDomain(e *domain.Execution) executionItem {
	item := executionItem{
		UserID:               e.UserID,
		TransactionID:        e.TransactionID,
		CanonicalTicker:      e.CanonicalTicker,
		RawSymbol:            e.RawSymbol,
		FullSymbol:           e.FullSymbol,
		Description:          e.Description,
		Exchange:             e.Exchange,
		Side:                 string(e.Side),
		Quantity:             e.Quantity.String(),
		PositionEffect:       e.PositionEffect.String(),
		ExecutionPrice:       e.ExecutionPrice.String(),
		OrderType:            e.OrderType,
		Account:              e.Account,
		Date:                 e.Date,
		Time:                 e.Time,
		TradingDay:           e.TradingDay,
		WeekNum:              e.WeekNum,
		ContractExpiration:   e.ContractExpiration,
		ExchangeConfirmation: e.ExchangeConfirmation,
		GWOrderID:            e.GWOrderID,
		OrderExecID:          e.OrderExecID,
		NotionalValue:        e.NotionalValue.String(),
		Fee:                  e.Fee.String(),
		PositionQtyAfter:     e.PositionQtyAfter.String(),
		LifecycleStatus:      string(e.LifecycleStatus),
		Extra:                e.Extra,
		QualityFlags:         e.QualityFlags,
	}
	if e.RealizedPnL != nil {
		v := e.RealizedPnL.String()
		item.RealizedPnL = &v
	}
	return item
}

func (item *executionItem) toDomain() (*domain.Execution, error) {
	e := &domain.Execution{
		TransactionID:        item.TransactionID,
		UserID:               item.UserID,
		CanonicalTicker:      item.CanonicalTicker,
		RawSymbol:            item.RawSymbol,
		FullSymbol:           item.FullSymbol,
		Description:          item.Description,
		Exchange:             item.Exchange,
		Side:                 domain.Side(item.Side),
		OrderType:            item.OrderType,
		Account:              item.Account,
		Date:                 item.Date,
		Time:                 item.Time,
		TradingDay:           item.TradingDay,
		WeekNum:              item.WeekNum,
		ContractExpiration:   item.ContractExpiration,
		ExchangeConfirmation: item.ExchangeConfirmation,
		GWOrderID:            item.GWOrderID,
		OrderExecID:          item.OrderExecID,
		LifecycleStatus:      domain.LifecycleStatus(item.LifecycleStatus),
		Extra:                item.Extra,
		QualityFlags:         item.QualityFlags,
	}

	for _, field := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"quantity", item.Quantity, &e.Quantity},
		{"positionEffect", item.PositionEffect, &e.PositionEffect},
		{"executionPrice", item.ExecutionPrice, &e.ExecutionPrice},
		{"notionalValue", item.NotionalValue, &e.NotionalValue},
		{"fee", item.Fee, &e.Fee},
		{"positionQtyAfter", item.PositionQtyAfter, &e.PositionQtyAfter},
	} {
		if field.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(field.raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", field.name, field.raw, err)
		}
		*field.dst = d
	}

	if item.RealizedPnL != nil {
		d, err := decimal.NewFromString(*item.RealizedPnL)
		if err != nil {
			return nil, fmt.Errorf("parse realizedPnl %q: %w", *item.RealizedPnL, err)
		}
		e.RealizedPnL = &d
	}

	return e, nil
}
