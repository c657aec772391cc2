package handler

import (
	"schoolpay/internal/payment"
	"schoolpay/pkg/money"
)

type feeLine struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// TransactionRequest starts a one-shot checkout. Amounts are minor units.
type TransactionRequest struct {
	Term int       `json:"term"`
	Fee  []feeLine `json:"fee"`
}

// SubscriptionRequest starts a 3-installment recurring plan. Card details go
// straight to the gateway and are never stored.
type SubscriptionRequest struct {
	Term        int       `json:"term"`
	Fee         []feeLine `json:"fee"`
	CardNumber  string    `json:"cardNo"`
	ExpiryMonth string    `json:"month"`
	ExpiryYear  string    `json:"year"`
	CVV         string    `json:"cvv"`
	CardName    string    `json:"cardName"`
}

func toFeeLines(fee []feeLine) []payment.FeeLine {
	lines := make([]payment.FeeLine, len(fee))
	for i, f := range fee {
		lines[i] = payment.FeeLine{Name: f.Name, Amount: money.Amount(f.Amount)}
	}
	return lines
}
