package types

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type OrderTestSuite struct {
	suite.Suite
}

func TestOrderSuite(t *testing.T) {
	suite.Run(t, new(OrderTestSuite))
}

func (s *OrderTestSuite) validExecuteOrder() ExecuteOrder {
	return ExecuteOrder{
		ID:          uuid.New().String(),
		Symbol:      "AAPL",
		Side:        PurchaseTypeBuy,
		OrderType:   OrderTypeLimit,
		TimeInForce: TimeInForceDay,
		Quantity:    100,
		Price:       50.0,
		Reason:      OrderReasonEntrySignal,
	}
}

func (s *OrderTestSuite) TestExecuteOrderValidate() {
	tests := []struct {
		name    string
		mutate  func(*ExecuteOrder)
		wantErr bool
	}{
		{
			name:    "valid order",
			mutate:  func(eo *ExecuteOrder) {},
			wantErr: false,
		},
		{
			name:    "missing id",
			mutate:  func(eo *ExecuteOrder) { eo.ID = "" },
			wantErr: true,
		},
		{
			name:    "non uuid id",
			mutate:  func(eo *ExecuteOrder) { eo.ID = "order-1" },
			wantErr: true,
		},
		{
			name:    "missing symbol",
			mutate:  func(eo *ExecuteOrder) { eo.Symbol = "" },
			wantErr: true,
		},
		{
			name:    "invalid side",
			mutate:  func(eo *ExecuteOrder) { eo.Side = "HOLD" },
			wantErr: true,
		},
		{
			name:    "zero quantity",
			mutate:  func(eo *ExecuteOrder) { eo.Quantity = 0 },
			wantErr: true,
		},
		{
			name:    "negative price",
			mutate:  func(eo *ExecuteOrder) { eo.Price = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			eo := s.validExecuteOrder()
			tt.mutate(&eo)

			err := eo.Validate()
			if tt.wantErr {
				s.Require().Error(err)
			} else {
				s.Require().NoError(err)
			}
		})
	}
}

func (s *OrderTestSuite) TestOrderValidate() {
	order := Order{
		OrderID:        "12345",
		Symbol:         "AAPL",
		Side:           PurchaseTypeBuy,
		Quantity:       100,
		FilledQuantity: 0,
		Price:          50.0,
		Status:         OrderStatusNew,
		Timestamp:      time.Now(),
	}
	s.Require().NoError(order.Validate())

	order.OrderID = ""
	s.Require().Error(order.Validate())
}

func (s *OrderTestSuite) TestOrderStatusIsTerminal() {
	s.True(OrderStatusFilled.IsTerminal())
	s.True(OrderStatusCanceled.IsTerminal())
	s.True(OrderStatusRejected.IsTerminal())
	s.False(OrderStatusNew.IsTerminal())
	s.False(OrderStatusPartiallyFilled.IsTerminal())
}
