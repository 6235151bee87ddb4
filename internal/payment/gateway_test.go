package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMpesa_Initiate(t *testing.T) {
	settler := &mockSettler{}
	g := NewMpesa(settler)

	tx, err := g.Initiate(context.Background(), InitiateRequest{
		OrderID: "order-1",
		Amount:  domain.Units(3250),
		Params:  Params{Phone: "0712 345 678"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(tx.TransactionID, "MPESA-"))
	assert.Equal(t, domain.PaymentStatusPending, tx.Status)
	assert.Equal(t, "254712345678", tx.Phone)
	assert.True(t, tx.Async)
	assert.Empty(t, settler.settled, "settlement must not start before Activate")

	require.NoError(t, g.Activate(context.Background(), tx))
	assert.Len(t, settler.settled, 1)
}

func TestMpesa_InvalidPhone(t *testing.T) {
	g := NewMpesa(&mockSettler{})
	_, err := g.Initiate(context.Background(), InitiateRequest{OrderID: "o", Amount: 100, Params: Params{Phone: "not-a-phone"}})
	assert.ErrorIs(t, err, ErrInvalidPaymentParams)
}

func TestMpesa_GatewayUnavailable(t *testing.T) {
	g := NewMpesa(&mockSettler{readyErr: errors.New("connection refused")})
	_, err := g.Initiate(context.Background(), InitiateRequest{OrderID: "o", Amount: 100, Params: Params{Phone: "0712345678"}})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	_, err = NewMpesa(nil).Initiate(context.Background(), InitiateRequest{OrderID: "o", Amount: 100, Params: Params{Phone: "0712345678"}})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCard_Initiate(t *testing.T) {
	g := NewCard(&mockSettler{})
	tx, err := g.Initiate(context.Background(), InitiateRequest{OrderID: "o", Amount: 100})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tx.TransactionID, "CARD-"))
	assert.True(t, tx.Async)
}

func TestOffline_Initiate(t *testing.T) {
	cod, err := NewCashOnDelivery().Initiate(context.Background(), InitiateRequest{OrderID: "o", Amount: domain.Units(10)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cod.TransactionID, "COD-"))
	assert.False(t, cod.Async)
	assert.Contains(t, cod.Instructions, "10.00")

	bank, err := NewBankTransfer("Equity A/C 123").Initiate(context.Background(), InitiateRequest{OrderID: "o", Amount: domain.Units(10)})
	require.NoError(t, err)
	assert.Contains(t, bank.Instructions, "Equity A/C 123")
	assert.Contains(t, bank.Instructions, bank.TransactionID)
}

func TestRegistry(t *testing.T) {
	settler := &mockSettler{}
	reg, err := NewRegistry(NewMpesa(settler), NewCard(settler), NewCashOnDelivery(), NewBankTransfer("x"))
	require.NoError(t, err)

	g, err := reg.Get(domain.PaymentMethodMpesa)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodMpesa, g.Method())

	_, err = reg.Get("bitcoin")
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	reg.Abandon("order-9")
	assert.Equal(t, []string{"order-9", "order-9"}, settler.abandoned)

	_, err = NewRegistry(NewCashOnDelivery(), NewCashOnDelivery())
	assert.Error(t, err)
}

func TestCallbackEvent_Outcome(t *testing.T) {
	assert.Equal(t, domain.PaymentStatusCompleted, CallbackEvent{Success: true}.Outcome())
	assert.Equal(t, domain.PaymentStatusFailed, CallbackEvent{}.Outcome())
}
