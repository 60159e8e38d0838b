package requests_test

import (
	"context"
	"testing"

	"github.com/egov-platform/citizen-services/internal/app/domain/catalog"
	"github.com/egov-platform/citizen-services/internal/app/domain/instrument"
	"github.com/egov-platform/citizen-services/internal/app/domain/request"
	"github.com/egov-platform/citizen-services/internal/app/services/requests"
	"github.com/egov-platform/citizen-services/internal/app/storage/memory"
	"github.com/egov-platform/citizen-services/internal/errors"
)

func newFixture(t *testing.T, policy requests.PaymentPolicy) (*requests.Service, *memory.Store, catalog.Service) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()

	agency, err := store.CreateAgency(ctx, catalog.Agency{Name: "Interior Ministry"})
	if err != nil {
		t.Fatalf("create agency: %v", err)
	}
	svc, err := store.CreateService(ctx, catalog.Service{
		AgencyID: agency.ID,
		Name:     "Passport Renewal",
		Fee:      50,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	return requests.New(store, store, store, nil, policy, nil), store, svc
}

func TestCreateDerivesStatus(t *testing.T) {
	svc, store, catalogSvc := newFixture(t, nil)
	ctx := context.Background()

	req, err := svc.Create(ctx, "user-1", catalogSvc.ID, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Status != request.StatusApproved {
		t.Fatalf("status = %s, want APPROVED", req.Status)
	}
	if req.IsPaid {
		t.Fatal("new request must not be paid")
	}

	scheduled, err := store.CreateService(ctx, catalog.Service{
		AgencyID: catalogSvc.AgencyID,
		Name:     "Doctor Appointment",
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	req, err = svc.Create(ctx, "user-1", scheduled.ID, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Status != request.StatusUpcoming {
		t.Fatalf("status = %s, want UPCOMING", req.Status)
	}
}

func TestCreateValidatesServiceReference(t *testing.T) {
	svc, _, _ := newFixture(t, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "user-1", "", nil); !errors.Is(err, errors.CodeValidation) {
		t.Fatalf("empty service_id: got %v, want validation error", err)
	}
	if _, err := svc.Create(ctx, "user-1", "missing", nil); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("unknown service: got %v, want not found", err)
	}
}

func TestCreateNormalizesPayload(t *testing.T) {
	svc, _, catalogSvc := newFixture(t, nil)
	ctx := context.Background()

	cases := []struct {
		name    string
		payload interface{}
		want    map[string]interface{}
	}{
		{"nil", nil, map[string]interface{}{}},
		{"map", map[string]interface{}{"a": 1.0}, map[string]interface{}{"a": 1.0}},
		{"json string", `{"a":1}`, map[string]interface{}{"a": 1.0}},
		{"invalid string", `{not json`, map[string]interface{}{}},
		{"json array string", `[1,2]`, map[string]interface{}{}},
		{"number", 42, map[string]interface{}{}},
	}

	for _, tc := range cases {
		req, err := svc.Create(ctx, "user-1", catalogSvc.ID, tc.payload)
		if err != nil {
			t.Fatalf("%s: Create: %v", tc.name, err)
		}
		if len(req.Payload) != len(tc.want) {
			t.Errorf("%s: payload = %v, want %v", tc.name, req.Payload, tc.want)
			continue
		}
		for k, v := range tc.want {
			if req.Payload[k] != v {
				t.Errorf("%s: payload[%s] = %v, want %v", tc.name, k, req.Payload[k], v)
			}
		}
	}
}

func TestGetIsOwnerScoped(t *testing.T) {
	svc, _, catalogSvc := newFixture(t, nil)
	ctx := context.Background()

	req, err := svc.Create(ctx, "user-1", catalogSvc.ID, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, "user-1", req.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := svc.Get(ctx, "user-2", req.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("foreign Get: got %v, want not found", err)
	}
	if err := svc.Delete(ctx, "user-2", req.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("foreign Delete: got %v, want not found", err)
	}
	if _, err := svc.Get(ctx, "user-1", req.ID); err != nil {
		t.Fatalf("request must survive foreign delete: %v", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	svc, _, catalogSvc := newFixture(t, nil)
	ctx := context.Background()

	req, err := svc.Create(ctx, "user-1", catalogSvc.ID, map[string]interface{}{"keep": true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status := request.StatusRejected
	updated, err := svc.Update(ctx, "user-1", req.ID, requests.UpdateFields{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != request.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", updated.Status)
	}
	if updated.Payload["keep"] != true {
		t.Fatal("payload must be untouched when not provided")
	}

	updated, err = svc.Update(ctx, "user-1", req.ID, requests.UpdateFields{Payload: `{"new":"value"}`})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Payload["new"] != "value" {
		t.Fatalf("payload = %v, want new:value", updated.Payload)
	}
	if updated.Status != request.StatusRejected {
		t.Fatal("status must be untouched when not provided")
	}
}

func TestPayBankAccount(t *testing.T) {
	svc, store, catalogSvc := newFixture(t, requests.BankAccountPolicy{})
	ctx := context.Background()

	req, err := svc.Create(ctx, "user-1", catalogSvc.ID, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// No instrument registered.
	if _, err := svc.Pay(ctx, "user-1", req.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("pay without instrument: got %v, want not found", err)
	}

	// Depleted account.
	inst, err := store.CreateInstrument(ctx, instrument.Instrument{
		UserID: "user-1",
		Kind:   instrument.KindBankAccount,
		IBAN:   "DE89370400440532013000",
	})
	if err != nil {
		t.Fatalf("create instrument: %v", err)
	}
	if _, err := svc.Pay(ctx, "user-1", req.ID); !errors.Is(err, errors.CodeInsufficientFunds) {
		t.Fatalf("pay with depleted account: got %v, want insufficient funds", err)
	}

	// Funded account.
	inst.InfiniteBalance = true
	if _, err := store.UpdateInstrument(ctx, inst); err != nil {
		t.Fatalf("update instrument: %v", err)
	}
	paid, err := svc.Pay(ctx, "user-1", req.ID)
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if !paid.IsPaid {
		t.Fatal("request must be paid")
	}
	if paid.Status != request.StatusApproved {
		t.Fatalf("bank payment must not change status, got %s", paid.Status)
	}
}

func TestPayCreditCardApproves(t *testing.T) {
	svc, store, catalogSvc := newFixture(t, requests.CreditCardPolicy{})
	ctx := context.Background()

	pending, err := store.CreateService(ctx, catalog.Service{AgencyID: catalogSvc.AgencyID, Name: "Building Permit"})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	req, err := svc.Create(ctx, "user-1", pending.ID, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if req.Status != request.StatusPending {
		t.Fatalf("status = %s, want PENDING", req.Status)
	}

	if _, err := svc.Pay(ctx, "user-1", req.ID); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("pay without card: got %v, want not found", err)
	}

	if _, err := store.CreateInstrument(ctx, instrument.Instrument{
		UserID:     "user-1",
		Kind:       instrument.KindCreditCard,
		CardNumber: "4111111111111111",
	}); err != nil {
		t.Fatalf("create instrument: %v", err)
	}

	paid, err := svc.Pay(ctx, "user-1", req.ID)
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	if !paid.IsPaid || paid.Status != request.StatusApproved {
		t.Fatalf("card payment must pay and approve, got paid=%v status=%s", paid.IsPaid, paid.Status)
	}
}

func TestPayTwiceIsNoOp(t *testing.T) {
	svc, store, catalogSvc := newFixture(t, requests.BankAccountPolicy{})
	ctx := context.Background()

	req, err := svc.Create(ctx, "user-1", catalogSvc.ID, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.CreateInstrument(ctx, instrument.Instrument{
		UserID:          "user-1",
		Kind:            instrument.KindBankAccount,
		IBAN:            "DE89370400440532013000",
		InfiniteBalance: true,
	}); err != nil {
		t.Fatalf("create instrument: %v", err)
	}

	first, err := svc.Pay(ctx, "user-1", req.ID)
	if err != nil {
		t.Fatalf("first Pay: %v", err)
	}

	// Remove the instrument: the second call must still succeed because an
	// already-paid request short-circuits before authorization.
	if err := store.DeleteInstrument(ctx, "user-1"); err != nil {
		t.Fatalf("delete instrument: %v", err)
	}
	second, err := svc.Pay(ctx, "user-1", req.ID)
	if err != nil {
		t.Fatalf("second Pay: %v", err)
	}
	if second.IsPaid != first.IsPaid || second.Status != first.Status {
		t.Fatal("second payment must not change the record")
	}
}
