package domain

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentRefNotFound = errors.New("no order found for payment reference")
	ErrPaymentRefTaken    = errors.New("payment reference already in use")
	ErrInvalidSender      = errors.New("sender is not a recognized bank")
	ErrEmptySMSBody       = errors.New("sms body is empty")
	ErrNoReference        = errors.New("no payment reference found in sms body")
	ErrNoAmount           = errors.New("no amount found in sms body")
)
