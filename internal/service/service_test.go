package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sol-price-alerts/internal/alert"
	"sol-price-alerts/internal/alerting"
	"sol-price-alerts/internal/history"
	"sol-price-alerts/internal/state"
)

type staticFetcher struct {
	price decimal.Decimal
	err   error
}

func (f *staticFetcher) FetchQuote(ctx context.Context) (decimal.Decimal, error) {
	return f.price, f.err
}

type memStore struct {
	st      state.State
	found   bool
	saves   int
	saveErr error
}

func (m *memStore) Load() (state.State, bool, error) { return m.st, m.found, nil }

func (m *memStore) Save(st state.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.st = st
	m.found = true
	m.saves++
	return nil
}

type fakeRenderer struct {
	err   error
	calls int
}

func (r *fakeRenderer) Render(price, delta decimal.Decimal, dir alert.Direction) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("png"), nil
}

type fakeNotifier struct {
	err   error
	notes []alerting.Notification
}

func (n *fakeNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.notes = append(n.notes, note)
	return nil
}

type fakeAudit struct {
	records []history.Record
}

func (a *fakeAudit) RecordAlert(ctx context.Context, rec history.Record) (int64, error) {
	a.records = append(a.records, rec)
	return int64(len(a.records)), nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func deltaPolicy() alert.Policy {
	return alert.Policy{Mode: alert.ModeDelta, Threshold: dec("1.00")}
}

func newService(f *staticFetcher, m *memStore, r *fakeRenderer, n *fakeNotifier, a *fakeAudit) *Service {
	var audit AlertHistory
	if a != nil {
		audit = a
	}
	var notifier alerting.Notifier
	if n != nil {
		notifier = n
	}
	return New(f, m, r, notifier, audit, deltaPolicy(), "SOLUSDT", zerolog.Nop())
}

func TestRunOnceFirstRunPersistsWithoutNotifying(t *testing.T) {
	store := &memStore{}
	notifier := &fakeNotifier{}
	renderer := &fakeRenderer{}
	svc := newService(&staticFetcher{price: dec("142.375")}, store, renderer, notifier, nil)

	decision, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if decision.Fire {
		t.Fatal("first run must not fire")
	}
	if len(notifier.notes) != 0 || renderer.calls != 0 {
		t.Fatal("first run must not render or notify")
	}
	if store.saves != 1 || store.st.LastPrice == nil || store.st.LastPrice.String() != "142.38" {
		t.Fatalf("baseline not persisted, state %+v", store.st)
	}
}

func TestRunOnceModeSwitchSeedsNewBaseline(t *testing.T) {
	// State file written by delta mode, policy switched to bucket: the
	// file exists but carries no level, so this run must seed one or
	// the job can never fire again.
	store := &memStore{st: state.State{}.WithLastPrice(dec("100.00")), found: true}
	notifier := &fakeNotifier{}
	renderer := &fakeRenderer{}
	policy := alert.Policy{Mode: alert.ModeBucket, Step: 10}
	svc := New(&staticFetcher{price: dec("105.00")}, store, renderer, notifier, nil, policy, "SOLUSDT", zerolog.Nop())

	decision, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if decision.Fire {
		t.Fatal("seeding run must not fire")
	}
	if len(notifier.notes) != 0 || renderer.calls != 0 {
		t.Fatal("seeding run must not render or notify")
	}
	if store.saves != 1 || store.st.LastStep == nil || *store.st.LastStep != 100 {
		t.Fatalf("level baseline not persisted, state %+v", store.st)
	}
	if store.st.LastPrice != nil {
		t.Fatalf("stale delta baseline kept: %s", store.st.LastPrice)
	}

	// With the level seeded, the next crossing fires normally.
	svc = New(&staticFetcher{price: dec("115.00")}, store, renderer, notifier, nil, policy, "SOLUSDT", zerolog.Nop())
	decision, err = svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !decision.Fire || decision.Level != 110 {
		t.Fatalf("want fire at level 110 after seeding, got %+v", decision)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("want one notification, got %d", len(notifier.notes))
	}
}

func TestRunOnceNoFireLeavesStateAlone(t *testing.T) {
	store := &memStore{st: state.State{}.WithLastPrice(dec("100.00")), found: true}
	notifier := &fakeNotifier{}
	svc := newService(&staticFetcher{price: dec("100.50")}, store, &fakeRenderer{}, notifier, nil)

	decision, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if decision.Fire {
		t.Fatal("0.50 under threshold must not fire")
	}
	if store.saves != 0 {
		t.Fatal("no-fire run must not write state")
	}
	if len(notifier.notes) != 0 {
		t.Fatal("no-fire run must not notify")
	}
}

func TestRunOnceFireDeliversAndPersists(t *testing.T) {
	store := &memStore{st: state.State{}.WithLastPrice(dec("100.00")), found: true}
	notifier := &fakeNotifier{}
	audit := &fakeAudit{}
	svc := newService(&staticFetcher{price: dec("101.50")}, store, &fakeRenderer{}, notifier, audit)

	decision, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !decision.Fire || decision.Direction != alert.DirectionUp {
		t.Fatalf("want an up fire, got %+v", decision)
	}
	if len(notifier.notes) != 1 {
		t.Fatalf("want one notification, got %d", len(notifier.notes))
	}
	note := notifier.notes[0]
	if !strings.Contains(note.Caption, "<b>SOLUSDT</b>") || !strings.Contains(note.Caption, "+1.50") {
		t.Fatalf("caption = %q", note.Caption)
	}
	if !strings.Contains(note.Caption, "$101.50") {
		t.Fatalf("caption should carry the formatted price: %q", note.Caption)
	}
	if store.st.LastPrice == nil || store.st.LastPrice.String() != "101.5" {
		t.Fatalf("baseline should move to fired price, got %+v", store.st)
	}
	if len(audit.records) != 1 || audit.records[0].Symbol != "SOLUSDT" {
		t.Fatalf("audit records = %+v", audit.records)
	}
}

func TestRunOnceFetchErrorTouchesNothing(t *testing.T) {
	store := &memStore{st: state.State{}.WithLastPrice(dec("100.00")), found: true}
	svc := newService(&staticFetcher{err: errors.New("boom")}, store, &fakeRenderer{}, &fakeNotifier{}, nil)

	_, err := svc.RunOnce(context.Background())
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("want ErrFetch, got %v", err)
	}
	if store.saves != 0 {
		t.Fatal("failed fetch must not write state")
	}
}

func TestRunOnceSendErrorSkipsStateWrite(t *testing.T) {
	store := &memStore{st: state.State{}.WithLastPrice(dec("100.00")), found: true}
	notifier := &fakeNotifier{err: errors.New("telegram down")}
	svc := newService(&staticFetcher{price: dec("105.00")}, store, &fakeRenderer{}, notifier, nil)

	_, err := svc.RunOnce(context.Background())
	if !errors.Is(err, ErrSend) {
		t.Fatalf("want ErrSend, got %v", err)
	}
	if store.saves != 0 {
		t.Fatal("state must not move when delivery failed, so the next run re-fires")
	}
	if store.st.LastPrice.String() != "100" {
		t.Fatalf("baseline changed: %s", store.st.LastPrice)
	}
}

func TestRunOnceRenderErrorClassified(t *testing.T) {
	store := &memStore{st: state.State{}.WithLastPrice(dec("100.00")), found: true}
	svc := newService(&staticFetcher{price: dec("105.00")}, store, &fakeRenderer{err: errors.New("no canvas")}, &fakeNotifier{}, nil)

	_, err := svc.RunOnce(context.Background())
	if !errors.Is(err, ErrRender) {
		t.Fatalf("want ErrRender, got %v", err)
	}
	if store.saves != 0 {
		t.Fatal("render failure must not write state")
	}
}

func TestRunOnceStateSaveErrorClassified(t *testing.T) {
	store := &memStore{st: state.State{}.WithLastPrice(dec("100.00")), found: true, saveErr: errors.New("disk full")}
	svc := newService(&staticFetcher{price: dec("105.00")}, store, &fakeRenderer{}, &fakeNotifier{}, nil)

	_, err := svc.RunOnce(context.Background())
	if !errors.Is(err, ErrState) {
		t.Fatalf("want ErrState, got %v", err)
	}
}

func TestRunOnceBucketCaption(t *testing.T) {
	store := &memStore{st: state.State{}.WithLastStep(100), found: true}
	notifier := &fakeNotifier{}
	policy := alert.Policy{Mode: alert.ModeBucket, Step: 10}
	svc := New(&staticFetcher{price: dec("112.00")}, store, &fakeRenderer{}, notifier, nil, policy, "SOLUSDT", zerolog.Nop())

	decision, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !decision.Fire || decision.Level != 110 {
		t.Fatalf("want fire at level 110, got %+v", decision)
	}
	if got := notifier.notes[0].Caption; !strings.Contains(got, "$110 level") {
		t.Fatalf("caption = %q", got)
	}
	if store.st.LastStep == nil || *store.st.LastStep != 110 {
		t.Fatalf("stored level = %v, want 110", store.st.LastStep)
	}
}
