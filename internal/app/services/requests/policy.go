package requests

import (
	"github.com/egov-platform/citizen-services/internal/app/domain/instrument"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	"github.com/egov-platform/citizen-services/internal/config"
	"github.com/egov-platform/citizen-services/internal/errors"
)

// PaymentPolicy captures the per-variant payment rules. The two deployment
// generations disagree on both the success condition and the success
// mutation, so both live behind this interface instead of branching inside
// the payment flow.
type PaymentPolicy interface {
	// Authorize decides whether the caller's instrument can settle a
	// request. found is false when the user has no instrument on file.
	Authorize(inst instrument.Instrument, found bool) error
	// MarkPaid applies the variant's success mutation to the request.
	MarkPaid(req *request.ServiceRequest)
}

// BankAccountPolicy pays only from accounts flagged with infinite balance.
type BankAccountPolicy struct{}

func (BankAccountPolicy) Authorize(inst instrument.Instrument, found bool) error {
	if !found {
		return errors.NotFound("payment instrument")
	}
	if !inst.InfiniteBalance {
		return errors.InsufficientFunds("insufficient funds")
	}
	return nil
}

func (BankAccountPolicy) MarkPaid(req *request.ServiceRequest) {
	req.IsPaid = true
}

// CreditCardPolicy pays whenever any card is on file, and approves the
// request on success.
type CreditCardPolicy struct{}

func (CreditCardPolicy) Authorize(inst instrument.Instrument, found bool) error {
	if !found {
		return errors.NotFound("credit card")
	}
	return nil
}

func (CreditCardPolicy) MarkPaid(req *request.ServiceRequest) {
	req.IsPaid = true
	req.Status = request.StatusApproved
}

// PolicyForMode maps the configured instrument mode to its policy.
func PolicyForMode(mode string) PaymentPolicy {
	if mode == config.InstrumentModeCreditCard {
		return CreditCardPolicy{}
	}
	return BankAccountPolicy{}
}
