package checkout

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/Hassan1910/Terral-sub000/domain"
	"github.com/Hassan1910/Terral-sub000/internal/cart"
	"github.com/Hassan1910/Terral-sub000/internal/payment"
)

const (
	minPasswordLength    = 8
	maxIdempotencyKeyLen = 128
	maxNotesLength       = 2000
)

// Request is a checkout submission. CustomerID is set when the caller is
// authenticated.
type Request struct {
	CustomerID     string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Address        domain.Address
	PaymentMethod  string
	MpesaPhone     string
	Notes          string
	CreateAccount  bool
	Password       string
	ShippingOption string
	IdempotencyKey string
	Cart           cart.RawCart
}

// validated is a Request after field checks, with normalized values.
type validated struct {
	Request
	email    string
	method   domain.PaymentMethod
	shipping domain.ShippingOption
	gateway  payment.Gateway
	params   payment.Params
}

func (s *Service) validate(req Request) (*validated, error) {
	verr := &ValidationError{}
	v := &validated{Request: req}

	required := map[string]string{
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"email":      req.Email,
		"phone":      req.Phone,
		"address":    req.Address.Line,
		"city":       req.Address.City,
		"country":    req.Address.Country,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			verr.add(field, "is required")
		}
	}

	if email := strings.TrimSpace(req.Email); email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			verr.add("email", "is not a valid email address")
		} else {
			v.email = strings.ToLower(addr.Address)
		}
	}

	if req.CreateAccount && req.CustomerID == "" && len(req.Password) < minPasswordLength {
		verr.add("password", "must be at least 8 characters to create an account")
	}

	switch opt := domain.ShippingOption(strings.ToLower(strings.TrimSpace(req.ShippingOption))); opt {
	case "":
		v.shipping = domain.ShippingStandard
	case domain.ShippingStandard, domain.ShippingExpress:
		v.shipping = opt
	default:
		verr.add("shipping_option", "must be standard or express")
	}

	if len(req.IdempotencyKey) > maxIdempotencyKeyLen {
		verr.add("idempotency_key", "is too long")
	}
	if len(req.Notes) > maxNotesLength {
		verr.add("notes", "is too long")
	}
	if len(req.Cart) == 0 {
		verr.add("cart", "is empty")
	}

	method, ok := domain.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		verr.add("payment_method", "must be one of mpesa, card, cash, bank_transfer")
	} else {
		v.method = method
		gw, err := s.gateways.Get(method)
		if err != nil {
			verr.add("payment_method", "is not available")
		} else {
			v.gateway = gw
			phone := req.MpesaPhone
			if strings.TrimSpace(phone) == "" {
				phone = req.Phone
			}
			params, err := gw.Validate(payment.Params{Phone: phone})
			switch {
			case errors.Is(err, payment.ErrInvalidPaymentParams):
				verr.add("mpesa_phone", "must be a valid Safaricom number such as 0712345678")
			case err != nil:
				verr.add("payment_method", err.Error())
			default:
				v.params = params
			}
		}
	}

	if !verr.empty() {
		return nil, verr
	}
	return v, nil
}
