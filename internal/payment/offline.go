package payment

import (
	"context"
	"fmt"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/google/uuid"
)

// CashOnDelivery and BankTransfer settle outside the system. Initiation only
// returns instructions; an operator reconciles the payment later.
type CashOnDelivery struct{}

func NewCashOnDelivery() *CashOnDelivery {
	return &CashOnDelivery{}
}

func (CashOnDelivery) Method() domain.PaymentMethod {
	return domain.PaymentMethodCashOnDelivery
}

func (CashOnDelivery) Validate(Params) (Params, error) {
	return Params{}, nil
}

func (CashOnDelivery) Initiate(_ context.Context, req InitiateRequest) (PendingTransaction, error) {
	return PendingTransaction{
		TransactionID: "COD-" + uuid.NewString(),
		OrderID:       req.OrderID,
		Method:        domain.PaymentMethodCashOnDelivery,
		Amount:        req.Amount,
		Status:        domain.PaymentStatusPending,
		Instructions:  fmt.Sprintf("Pay KES %s in cash when your order is delivered.", req.Amount),
	}, nil
}

type BankTransfer struct {
	accountDetails string
}

func NewBankTransfer(accountDetails string) *BankTransfer {
	return &BankTransfer{accountDetails: accountDetails}
}

func (*BankTransfer) Method() domain.PaymentMethod {
	return domain.PaymentMethodBankTransfer
}

func (*BankTransfer) Validate(Params) (Params, error) {
	return Params{}, nil
}

func (b *BankTransfer) Initiate(_ context.Context, req InitiateRequest) (PendingTransaction, error) {
	ref := "BANK-" + uuid.NewString()
	return PendingTransaction{
		TransactionID: ref,
		OrderID:       req.OrderID,
		Method:        domain.PaymentMethodBankTransfer,
		Amount:        req.Amount,
		Status:        domain.PaymentStatusPending,
		Instructions: fmt.Sprintf("Transfer KES %s to %s using reference %s. Your order ships once the transfer is confirmed.",
			req.Amount, b.accountDetails, ref),
	}, nil
}
