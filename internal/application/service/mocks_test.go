package service

import (
	"context"
	"time"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/enum"
	"github.com/finledger/billable-api/internal/domain/repository"
	infraRepo "github.com/finledger/billable-api/internal/infrastructure/repository"
	"github.com/finledger/billable-api/pkg/pagination"
	"github.com/finledger/billable-api/pkg/payments"
	"github.com/finledger/billable-api/pkg/renderer"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func contextWithTenant(tenantID uuid.UUID) context.Context {
	return infraRepo.WithTenant(context.Background(), tenantID)
}

// --- Shared hand mocks. Each mock mimics the SQL semantics the real
// repository relies on (conditional updates, unique constraints) so the
// services are exercised against the same guarantees. ---

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockInvoiceRepo keeps invoices in memory and mimics the conditional
// UPDATE semantics of the Postgres implementation.

type mockInvoiceRepo struct {
	invoices  map[uuid.UUID]*entity.Invoice
	items     map[uuid.UUID][]entity.InvoiceItem
	createErr error
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: map[uuid.UUID]*entity.Invoice{},
		items:    map[uuid.UUID][]entity.InvoiceItem{},
	}
}

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if m.createErr != nil {
		return m.createErr
	}
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	for i := range invoice.Items {
		if invoice.Items[i].ID == uuid.Nil {
			invoice.Items[i].ID = uuid.New()
		}
		invoice.Items[i].InvoiceID = invoice.ID
	}
	m.invoices[invoice.ID] = invoice
	m.items[invoice.ID] = invoice.Items
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return m.invoices[id], nil
}

// GetWithItems reattaches items like the preloading query would
func (m *mockInvoiceRepo) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	inv.Items = m.items[id]
	return inv, nil
}

func (m *mockInvoiceRepo) GetByProviderSession(ctx context.Context, sessionID string) (*entity.Invoice, error) {
	for _, inv := range m.invoices {
		if inv.ProviderSessionID != nil && *inv.ProviderSessionID == sessionID {
			return inv, nil
		}
	}
	return nil, nil
}

func (m *mockInvoiceRepo) Update(ctx context.Context, invoice *entity.Invoice) error {
	m.invoices[invoice.ID] = invoice
	return nil
}

func (m *mockInvoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.invoices, id)
	delete(m.items, id)
	return nil
}

func (m *mockInvoiceRepo) List(ctx context.Context, params *repository.InvoiceFilterParams) ([]entity.Invoice, int64, error) {
	var out []entity.Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (m *mockInvoiceRepo) GetDueInvoices(ctx context.Context, params *pagination.PaginationParams) ([]entity.Invoice, int64, error) {
	var out []entity.Invoice
	for _, inv := range m.invoices {
		if inv.AmountDue.IsPositive() && inv.Status != enum.InvoiceStatusDraft && inv.Status != enum.InvoiceStatusCancelled {
			out = append(out, *inv)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockInvoiceRepo) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []entity.InvoiceItem) error {
	m.items[invoiceID] = items
	return nil
}

func (m *mockInvoiceRepo) CreditBalance(ctx context.Context, invoiceID uuid.UUID, amount decimal.Decimal) (*entity.Invoice, error) {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return nil, nil
	}
	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.AmountDue = inv.Total.Sub(inv.AmountPaid)
	if inv.AmountDue.IsNegative() {
		inv.AmountDue = decimal.Zero
	}
	updated := *inv
	return &updated, nil
}

func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.InvoiceStatus) error {
	if inv, ok := m.invoices[id]; ok {
		inv.Status = status
	}
	return nil
}

func (m *mockInvoiceRepo) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	if inv, ok := m.invoices[id]; ok && inv.SentAt == nil {
		inv.Status = enum.InvoiceStatusSent
		inv.SentAt = &sentAt
	}
	return nil
}

func (m *mockInvoiceRepo) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	if inv, ok := m.invoices[id]; ok && inv.PaidAt == nil {
		inv.Status = enum.InvoiceStatusPaid
		inv.PaidAt = &paidAt
	}
	return nil
}

func (m *mockInvoiceRepo) SetProviderSession(ctx context.Context, id uuid.UUID, sessionID *string) error {
	if inv, ok := m.invoices[id]; ok {
		inv.ProviderSessionID = sessionID
	}
	return nil
}

func (m *mockInvoiceRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var flipped int64
	for _, inv := range m.invoices {
		if inv.DueDate.Before(asOf) &&
			(inv.Status == enum.InvoiceStatusSent || inv.Status == enum.InvoiceStatusViewed) {
			inv.Status = enum.InvoiceStatusOverdue
			flipped++
		}
	}
	return flipped, nil
}

// mockPaymentRepo is append-only like the real one

type mockPaymentRepo struct {
	payments []*entity.Payment
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	m.payments = append(m.payments, payment)
	return nil
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) GetByProviderReference(ctx context.Context, ref string) (*entity.Payment, error) {
	for _, p := range m.payments {
		if p.ProviderReference != nil && *p.ProviderReference == ref {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockPaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]entity.Payment, error) {
	var out []entity.Payment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) List(ctx context.Context, params *pagination.PaginationParams) ([]entity.Payment, int64, error) {
	var out []entity.Payment
	for _, p := range m.payments {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

// mockEventRepo mimics the unique constraint on event_id

type mockEventRepo struct {
	events     map[string]*entity.ProviderEvent
	prunedDays []int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: map[string]*entity.ProviderEvent{}}
}

func (m *mockEventRepo) Record(ctx context.Context, event *entity.ProviderEvent) (bool, error) {
	if _, exists := m.events[event.EventID]; exists {
		return false, nil
	}
	m.events[event.EventID] = event
	return true, nil
}

func (m *mockEventRepo) GetByEventID(ctx context.Context, eventID string) (*entity.ProviderEvent, error) {
	return m.events[eventID], nil
}

func (m *mockEventRepo) DeleteOlderThan(ctx context.Context, days int) error {
	m.prunedDays = append(m.prunedDays, days)
	return nil
}

// mockEstimateRepo mimics the one-shot conversion stamp

type mockEstimateRepo struct {
	estimates map[uuid.UUID]*entity.Estimate
	items     map[uuid.UUID][]entity.EstimateItem
}

func newMockEstimateRepo() *mockEstimateRepo {
	return &mockEstimateRepo{
		estimates: map[uuid.UUID]*entity.Estimate{},
		items:     map[uuid.UUID][]entity.EstimateItem{},
	}
}

func (m *mockEstimateRepo) Create(ctx context.Context, estimate *entity.Estimate) error {
	if estimate.ID == uuid.Nil {
		estimate.ID = uuid.New()
	}
	for i := range estimate.Items {
		if estimate.Items[i].ID == uuid.Nil {
			estimate.Items[i].ID = uuid.New()
		}
		estimate.Items[i].EstimateID = estimate.ID
	}
	m.estimates[estimate.ID] = estimate
	m.items[estimate.ID] = estimate.Items
	return nil
}

func (m *mockEstimateRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Estimate, error) {
	return m.estimates[id], nil
}

func (m *mockEstimateRepo) GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Estimate, error) {
	e, ok := m.estimates[id]
	if !ok {
		return nil, nil
	}
	e.Items = m.items[id]
	return e, nil
}

func (m *mockEstimateRepo) Update(ctx context.Context, estimate *entity.Estimate) error {
	m.estimates[estimate.ID] = estimate
	return nil
}

func (m *mockEstimateRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.estimates, id)
	delete(m.items, id)
	return nil
}

func (m *mockEstimateRepo) List(ctx context.Context, params *repository.EstimateFilterParams) ([]entity.Estimate, int64, error) {
	var out []entity.Estimate
	for _, e := range m.estimates {
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (m *mockEstimateRepo) ReplaceItems(ctx context.Context, estimateID uuid.UUID, items []entity.EstimateItem) error {
	m.items[estimateID] = items
	return nil
}

func (m *mockEstimateRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.EstimateStatus) error {
	if e, ok := m.estimates[id]; ok {
		e.Status = status
	}
	return nil
}

func (m *mockEstimateRepo) MarkConverted(ctx context.Context, id, invoiceID uuid.UUID) (bool, error) {
	e, ok := m.estimates[id]
	if !ok || e.ConvertedInvoiceID != nil {
		return false, nil
	}
	e.ConvertedInvoiceID = &invoiceID
	e.Status = enum.EstimateStatusAccepted
	return true, nil
}

// mockSequenceRepo allocates monotonically increasing numbers per
// tenant+kind, like the RETURNING-based implementation

type mockSequenceRepo struct {
	counters map[string]int64
}

func newMockSequenceRepo() *mockSequenceRepo {
	return &mockSequenceRepo{counters: map[string]int64{}}
}

func (m *mockSequenceRepo) NextNumber(ctx context.Context, tenantID uuid.UUID, kind enum.DocumentKind, prefix string) (string, error) {
	key := tenantID.String() + "/" + kind.String()
	m.counters[key]++
	return entity.FormatNumber(prefix, m.counters[key]), nil
}

// mockTenantRepo serves one fixed tenant

type mockTenantRepo struct {
	tenant *entity.Tenant
}

func (m *mockTenantRepo) Create(ctx context.Context, tenant *entity.Tenant) error { return nil }
func (m *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Tenant, error) {
	if m.tenant != nil && m.tenant.ID == id {
		return m.tenant, nil
	}
	return nil, nil
}
func (m *mockTenantRepo) GetBySlug(ctx context.Context, slug string) (*entity.Tenant, error) {
	return m.tenant, nil
}
func (m *mockTenantRepo) Update(ctx context.Context, tenant *entity.Tenant) error {
	m.tenant = tenant
	return nil
}
func (m *mockTenantRepo) IsMember(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	return true, nil
}
func (m *mockTenantRepo) AddMember(ctx context.Context, membership *entity.TenantMembership) error {
	return nil
}
func (m *mockTenantRepo) ListMemberships(ctx context.Context, userID uuid.UUID) ([]entity.TenantMembership, error) {
	return nil, nil
}

// mockContactRepo

type mockContactRepo struct {
	contacts map[uuid.UUID]*entity.Contact
}

func newMockContactRepo() *mockContactRepo {
	return &mockContactRepo{contacts: map[uuid.UUID]*entity.Contact{}}
}

func (m *mockContactRepo) Create(ctx context.Context, contact *entity.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Contact, error) {
	return m.contacts[id], nil
}

func (m *mockContactRepo) GetByEmail(ctx context.Context, email string) (*entity.Contact, error) {
	for _, c := range m.contacts {
		if c.Email != nil && *c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockContactRepo) Update(ctx context.Context, contact *entity.Contact) error {
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.contacts, id)
	return nil
}

func (m *mockContactRepo) List(ctx context.Context, params *pagination.PaginationParams, search string) ([]entity.Contact, int64, error) {
	var out []entity.Contact
	for _, c := range m.contacts {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

// mockProfileRepo

type mockProfileRepo struct {
	profile *entity.BusinessProfile
}

func (m *mockProfileRepo) GetByTenant(ctx context.Context) (*entity.BusinessProfile, error) {
	return m.profile, nil
}

func (m *mockProfileRepo) Upsert(ctx context.Context, profile *entity.BusinessProfile) error {
	m.profile = profile
	return nil
}

// fakeProvider returns preconfigured sessions and events

type fakeProvider struct {
	enabled    bool
	session    *payments.CheckoutSession
	sessionErr error
	createErr  error
	event      *payments.WebhookEvent
	verifyErr  error
	created    []payments.CheckoutRequest
}

func (f *fakeProvider) Enabled() bool { return f.enabled }

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	return &payments.CheckoutSession{
		ID:       "cs_" + uuid.NewString()[:8],
		URL:      "https://checkout.test/session",
		Status:   "open",
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

func (f *fakeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*payments.CheckoutSession, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeProvider) VerifyWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return f.event, nil
}

// fakeLinker satisfies PaymentLinker for send-flow tests

type fakeLinker struct {
	url string
	err error
}

func (f *fakeLinker) CreatePaymentLink(ctx context.Context, invoiceID uuid.UUID) (*PaymentLink, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &PaymentLink{URL: f.url, SessionID: "cs_fake"}, nil
}

func testRenderer() renderer.DocumentRenderer {
	r, err := renderer.NewHTMLRenderer()
	if err != nil {
		panic(err)
	}
	return r
}
