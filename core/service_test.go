package core

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/relaywatch/go-relaywatch/webhooks"
)

type stubCredentialResolver struct {
	creds TenantCredentials
	err   error
}

func (r stubCredentialResolver) Resolve(_ context.Context, _ string, _ string) (TenantCredentials, error) {
	if r.err != nil {
		return TenantCredentials{}, r.err
	}
	return r.creds, nil
}

type probeScript struct {
	mu     sync.Mutex
	counts []int
	err    error
	calls  int
}

func (p *probeScript) PendingDeliveries(_ context.Context, _ string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return 0, p.err
	}
	idx := p.calls
	p.calls++
	if idx >= len(p.counts) {
		idx = len(p.counts) - 1
	}
	return p.counts[idx], nil
}

type memoryOutcomeStore struct {
	mu      sync.Mutex
	records []OutcomeRecord
	nextID  int
	err     error
}

func (s *memoryOutcomeStore) Append(_ context.Context, record OutcomeRecord) (OutcomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return OutcomeRecord{}, s.err
	}
	s.nextID++
	record.ID = record.EventID + "-rec"
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *memoryOutcomeStore) ListByEventKey(_ context.Context, eventID string, idempotencyKey string) ([]OutcomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	matches := []OutcomeRecord{}
	for _, record := range s.records {
		if record.EventID == eventID && record.IdempotencyKey == idempotencyKey {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

func (s *memoryOutcomeStore) ListByTenant(_ context.Context, tenantID string, _ int, _ int) ([]OutcomeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := []OutcomeRecord{}
	for _, record := range s.records {
		if record.TenantID == tenantID {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

func (s *memoryOutcomeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

type memoryUsageStore struct {
	mu         sync.Mutex
	decrements map[string]int
	err        error
}

func newMemoryUsageStore() *memoryUsageStore {
	return &memoryUsageStore{decrements: map[string]int{}}
}

func (s *memoryUsageStore) Decrement(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.decrements[tenantID]++
	return nil
}

func (s *memoryUsageStore) TokensLeft(_ context.Context, tenantID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 100 - s.decrements[tenantID], nil
}

func (s *memoryUsageStore) decrementCount(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decrements[tenantID]
}

type sentMail struct {
	recipient string
	subject   string
	body      string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, recipient string, subject string, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{recipient: recipient, subject: subject, body: body})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type serviceFixture struct {
	service  *Service
	outcomes *memoryOutcomeStore
	usage    *memoryUsageStore
	notifier *recordingNotifier
	probe    *probeScript
}

func testCredentials() TenantCredentials {
	return TenantCredentials{
		Tenant:    Tenant{ID: "ten_1", Email: "owner@example.com"},
		APIKey:    "sk_test_123",
		Connected: false,
	}
}

func zeroWaitScheduler(baseline int, waitCount int) *webhooks.RetryScheduler {
	waits := make([]time.Duration, waitCount)
	for i := range waits {
		waits[i] = time.Millisecond
	}
	scheduler := webhooks.NewRetryScheduler(baseline, waits...)
	scheduler.Sleep = func(context.Context, time.Duration) error { return nil }
	return scheduler
}

func newServiceFixture(t *testing.T, probe *probeScript, extra ...Option) serviceFixture {
	t.Helper()
	outcomes := &memoryOutcomeStore{}
	usage := newMemoryUsageStore()
	notifier := &recordingNotifier{}

	options := []Option{
		WithCredentialResolver(stubCredentialResolver{creds: testCredentials()}),
		WithClientFactory(func(TenantCredentials) (ProviderClient, error) {
			return probe, nil
		}),
		WithOutcomeStore(outcomes),
		WithUsageStore(usage),
		WithNotifier(notifier),
		WithRetryScheduler(zeroWaitScheduler(1, 3)),
	}
	options = append(options, extra...)

	service, err := NewService(DefaultConfig(), options...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return serviceFixture{
		service:  service,
		outcomes: outcomes,
		usage:    usage,
		notifier: notifier,
		probe:    probe,
	}
}

func testRequest() ReconcileRequest {
	return ReconcileRequest{
		Notification: RelayNotification{
			EventID:              "evt_1",
			EventType:            "invoice.payment_failed",
			Livemode:             true,
			PendingDeliveryCount: 3,
			AccountID:            "acct_1",
			RequestID:            "req_1",
			IdempotencyKey:       "key_1",
		},
	}
}

func TestReconcileResolvesWithoutRetriesWhenAlreadySettled(t *testing.T) {
	probe := &probeScript{counts: []int{1}}
	fixture := newServiceFixture(t, probe)

	req := testRequest()
	req.Notification.PendingDeliveryCount = 1

	outcome, err := fixture.service.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !outcome.Succeeded {
		t.Fatalf("expected success")
	}
	if !outcome.Novel {
		t.Fatalf("expected first outcome to be novel")
	}
	if outcome.PendingDeliveries != 0 {
		t.Fatalf("expected net pending 0, got %d", outcome.PendingDeliveries)
	}
	if probe.calls != 0 {
		t.Fatalf("expected no probes when initial count settles, got %d", probe.calls)
	}
	if fixture.outcomes.count() != 1 {
		t.Fatalf("expected one audit record, got %d", fixture.outcomes.count())
	}
	if fixture.usage.decrementCount("ten_1") != 1 {
		t.Fatalf("expected one usage decrement")
	}
	if fixture.notifier.count() != 0 {
		t.Fatalf("expected no failure email on success")
	}
}

func TestReconcileRetriesUntilSettled(t *testing.T) {
	probe := &probeScript{counts: []int{2, 1}}
	fixture := newServiceFixture(t, probe)

	outcome, err := fixture.service.Reconcile(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !outcome.Succeeded {
		t.Fatalf("expected success after retries")
	}
	if probe.calls != 2 {
		t.Fatalf("expected 2 probes, got %d", probe.calls)
	}
	if outcome.Record.Succeeded != true {
		t.Fatalf("expected succeeded audit record")
	}
}

func TestReconcileFailureSendsAlertAndRecords(t *testing.T) {
	probe := &probeScript{counts: []int{5, 5, 5}}
	fixture := newServiceFixture(t, probe)

	outcome, err := fixture.service.Reconcile(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcome.Succeeded {
		t.Fatalf("expected failure after schedule exhausted")
	}
	if outcome.PendingDeliveries != 4 {
		t.Fatalf("expected net pending 4 after baseline, got %d", outcome.PendingDeliveries)
	}
	if fixture.outcomes.count() != 1 {
		t.Fatalf("expected failure to be recorded")
	}
	if fixture.usage.decrementCount("ten_1") != 1 {
		t.Fatalf("expected usage decrement on novel failure")
	}
	if fixture.notifier.count() != 1 {
		t.Fatalf("expected one failure email, got %d", fixture.notifier.count())
	}
	mail := fixture.notifier.sent[0]
	if mail.recipient != "owner@example.com" {
		t.Fatalf("expected tenant contact recipient, got %q", mail.recipient)
	}
	if mail.subject != webhooks.FailureEmailSubject {
		t.Fatalf("unexpected subject %q", mail.subject)
	}
	if !strings.Contains(mail.body, "evt_1") {
		t.Fatalf("expected event id in alert body")
	}
}

func TestReconcileDuplicateOutcomeSuppressesSideEffects(t *testing.T) {
	probe := &probeScript{counts: []int{1, 1}}
	fixture := newServiceFixture(t, probe)

	req := testRequest()
	req.Notification.PendingDeliveryCount = 1

	if _, err := fixture.service.Reconcile(context.Background(), req); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	second, err := fixture.service.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if second.Novel {
		t.Fatalf("expected duplicate outcome to be suppressed")
	}
	if fixture.outcomes.count() != 2 {
		t.Fatalf("expected duplicate to still be recorded, got %d records", fixture.outcomes.count())
	}
	if fixture.usage.decrementCount("ten_1") != 1 {
		t.Fatalf("expected single usage decrement, got %d", fixture.usage.decrementCount("ten_1"))
	}
}

func TestReconcileFlippedOutcomeIsNovelAgain(t *testing.T) {
	fixture := newServiceFixture(t, &probeScript{counts: []int{5, 5, 5}})

	if _, err := fixture.service.Reconcile(context.Background(), testRequest()); err != nil {
		t.Fatalf("failing reconcile: %v", err)
	}
	if fixture.notifier.count() != 1 {
		t.Fatalf("expected failure alert")
	}

	fixture.probe.mu.Lock()
	fixture.probe.counts = []int{1}
	fixture.probe.calls = 0
	fixture.probe.mu.Unlock()

	flipped, err := fixture.service.Reconcile(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("flipped reconcile: %v", err)
	}
	if !flipped.Succeeded {
		t.Fatalf("expected flipped run to succeed")
	}
	if !flipped.Novel {
		t.Fatalf("expected state flip to count as novel")
	}
	if fixture.usage.decrementCount("ten_1") != 2 {
		t.Fatalf("expected flip to charge again, got %d decrements", fixture.usage.decrementCount("ten_1"))
	}
}

func TestReconcileRejectsMissingEventID(t *testing.T) {
	fixture := newServiceFixture(t, &probeScript{counts: []int{1}})

	req := testRequest()
	req.Notification.EventID = "  "

	_, err := fixture.service.Reconcile(context.Background(), req)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", richErr.Code)
	}
	if fixture.outcomes.count() != 0 {
		t.Fatalf("expected no record for rejected input")
	}
}

func TestReconcileUnauthorizedWithoutRouting(t *testing.T) {
	fixture := newServiceFixture(t, &probeScript{counts: []int{1}})

	req := testRequest()
	req.Notification.AccountID = ""
	req.TenantID = ""

	_, err := fixture.service.Reconcile(context.Background(), req)
	if err == nil {
		t.Fatalf("expected unauthorized error")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", richErr.Code)
	}
	if richErr.TextCode != ReconcileErrorUnauthorized {
		t.Fatalf("expected %s, got %s", ReconcileErrorUnauthorized, richErr.TextCode)
	}
	if fixture.outcomes.count() != 0 {
		t.Fatalf("expected nothing persisted for unauthorized notification")
	}
}

func TestReconcileProbeFailureMapsToExternalError(t *testing.T) {
	probe := &probeScript{err: errors.New("connection reset")}
	fixture := newServiceFixture(t, probe)

	_, err := fixture.service.Reconcile(context.Background(), testRequest())
	if err == nil {
		t.Fatalf("expected probe failure")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", richErr.Code)
	}
	if richErr.TextCode != ReconcileErrorProbeFailed {
		t.Fatalf("expected %s, got %s", ReconcileErrorProbeFailed, richErr.TextCode)
	}
	if fixture.outcomes.count() != 0 {
		t.Fatalf("expected no record when the probe never resolved")
	}
}

func TestReconcileUsageErrorDoesNotFailRun(t *testing.T) {
	probe := &probeScript{counts: []int{1}}
	fixture := newServiceFixture(t, probe)
	fixture.usage.err = errors.New("allowance row missing")

	req := testRequest()
	req.Notification.PendingDeliveryCount = 1

	outcome, err := fixture.service.Reconcile(context.Background(), req)
	if err != nil {
		t.Fatalf("expected decrement failure to be non-fatal, got %v", err)
	}
	if !outcome.Succeeded || !outcome.Novel {
		t.Fatalf("expected novel success despite usage error")
	}
	if fixture.outcomes.count() != 1 {
		t.Fatalf("expected audit record to survive usage error")
	}
}

func TestReconcileSkipsAlertWhenTenantHasNoContact(t *testing.T) {
	probe := &probeScript{counts: []int{5, 5, 5}}
	creds := testCredentials()
	creds.Tenant.Email = ""
	fixture := newServiceFixture(t, probe,
		WithCredentialResolver(stubCredentialResolver{creds: creds}),
	)

	outcome, err := fixture.service.Reconcile(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if outcome.Succeeded {
		t.Fatalf("expected failure outcome")
	}
	if fixture.notifier.count() != 0 {
		t.Fatalf("expected no email without a contact address")
	}
}

func TestAcceptAcknowledgesThenSettlesInBackground(t *testing.T) {
	probe := &probeScript{counts: []int{2, 1}}

	done := make(chan ReconcileOutcome, 1)
	fixture := newServiceFixture(t, probe,
		WithCompletionHook(func(outcome ReconcileOutcome, err error) {
			if err != nil {
				t.Errorf("background reconcile: %v", err)
			}
			done <- outcome
		}),
	)

	result, err := fixture.service.Accept(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance")
	}
	if result.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", result.StatusCode)
	}
	if result.TenantID != "ten_1" {
		t.Fatalf("expected resolved tenant in ack, got %q", result.TenantID)
	}

	select {
	case outcome := <-done:
		if !outcome.Succeeded {
			t.Fatalf("expected background success")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("background reconciliation did not finish")
	}
	if fixture.outcomes.count() != 1 {
		t.Fatalf("expected one audit record from background run")
	}
}

func TestAcceptRejectsUnauthorizedBeforeAck(t *testing.T) {
	fixture := newServiceFixture(t, &probeScript{counts: []int{1}},
		WithCredentialResolver(stubCredentialResolver{err: goerrors.New(
			"identity: credentials not found", goerrors.CategoryAuth,
		).WithCode(http.StatusUnauthorized).WithTextCode(ReconcileErrorUnauthorized)}),
	)

	_, err := fixture.service.Accept(context.Background(), testRequest())
	if err == nil {
		t.Fatalf("expected unauthorized accept to fail")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", richErr.Code)
	}
	if fixture.outcomes.count() != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestConcurrentDuplicatesChargeOnce(t *testing.T) {
	probe := &probeScript{counts: []int{1}}
	fixture := newServiceFixture(t, probe)

	req := testRequest()
	req.Notification.PendingDeliveryCount = 1

	var wg sync.WaitGroup
	novelCount := 0
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := fixture.service.Reconcile(context.Background(), req)
			if err != nil {
				t.Errorf("reconcile: %v", err)
				return
			}
			if outcome.Novel {
				mu.Lock()
				novelCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if novelCount != 1 {
		t.Fatalf("expected exactly one novel outcome, got %d", novelCount)
	}
	if fixture.outcomes.count() != 8 {
		t.Fatalf("expected every attempt recorded, got %d", fixture.outcomes.count())
	}
	if fixture.usage.decrementCount("ten_1") != 1 {
		t.Fatalf("expected one usage decrement, got %d", fixture.usage.decrementCount("ten_1"))
	}
}
