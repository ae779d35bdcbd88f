package helpcenter

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	adminA = int64(100)
	adminB = int64(101)
	userX  = int64(1)
)

type sentMsg struct {
	Recipient int64
	Msg       Message
}

// fakeTransport records every delivery and can fail selected recipients.
type fakeTransport struct {
	mu   sync.Mutex
	sent []sentMsg
	fail map[int64]bool
}

func (f *fakeTransport) Send(recipient int64, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[recipient] {
		return fmt.Errorf("unreachable: %d", recipient)
	}
	f.sent = append(f.sent, sentMsg{Recipient: recipient, Msg: msg})
	return nil
}

func (f *fakeTransport) sentTo(recipient int64) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, s := range f.sent {
		if s.Recipient == recipient {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

// memStore keeps deep snapshots of every save so tests can assert what was
// durable at a given point.
type memStore struct {
	mu        sync.Mutex
	initial   *State
	snapshots []State
}

func (m *memStore) Load() *State {
	if m.initial != nil {
		return m.initial
	}
	return DefaultState()
}

func (m *memStore) Save(st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := State{
		Users:    make(map[int64]*UserRecord, len(st.Users)),
		Pending:  make(map[string]*PendingTicket, len(st.Pending)),
		VipLink:  st.VipLink,
		DarkLink: st.DarkLink,
		Counters: st.Counters,
	}
	for id, u := range st.Users {
		cp := *u
		snap.Users[id] = &cp
	}
	for id, t := range st.Pending {
		cp := *t
		snap.Pending[id] = &cp
	}
	m.snapshots = append(m.snapshots, snap)
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) last(t *testing.T) State {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		t.Fatal("no state was persisted")
	}
	return m.snapshots[len(m.snapshots)-1]
}

func newTestService(t *testing.T) (*Service, *fakeTransport, *memStore) {
	t.Helper()
	tr := &fakeTransport{fail: make(map[int64]bool)}
	st := &memStore{}
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc := New(Options{
		Store:         st,
		Policy:        NewPolicy(adminA, adminB),
		Transport:     tr,
		FanoutWorkers: 2,
		Now:           func() time.Time { return base },
	})
	return svc, tr, st
}

func submitPayment(t *testing.T, svc *Service, service ServiceKind) SubmitResult {
	t.Helper()
	svc.RegisterUser(userX, "Alice")
	svc.BeginPayment(userX, service)
	res, err := svc.SubmitPayment(userX, "ref-42", &MediaRef{Kind: MediaPhoto, FileID: "file-1"})
	if err != nil {
		t.Fatalf("SubmitPayment: %v", err)
	}
	return res
}

func submitTech(t *testing.T, svc *Service, text string) SubmitResult {
	t.Helper()
	svc.RegisterUser(userX, "Alice")
	svc.BeginTech(userX)
	res, err := svc.SubmitTech(userX, text)
	if err != nil {
		t.Fatalf("SubmitTech: %v", err)
	}
	return res
}

func TestSubmitPaymentCreatesTicketAndNotifiesAdmins(t *testing.T) {
	svc, tr, st := newTestService(t)

	res := submitPayment(t, svc, ServiceVIP)
	if res.TicketID == "" {
		t.Fatal("expected a ticket id")
	}
	if res.AdminsNotified != 2 || res.AdminsTotal != 2 {
		t.Fatalf("expected both admins notified, got %d/%d", res.AdminsNotified, res.AdminsTotal)
	}

	snap := st.last(t)
	ticket, ok := snap.Pending[res.TicketID]
	if !ok {
		t.Fatalf("ticket %s not persisted", res.TicketID)
	}
	if ticket.Kind != TicketPayment || ticket.Service != ServiceVIP || ticket.UserID != userX {
		t.Fatalf("unexpected persisted ticket: %+v", ticket)
	}
	if snap.Counters.PaymentSubmitted != 1 {
		t.Fatalf("PaymentSubmitted = %d, want 1", snap.Counters.PaymentSubmitted)
	}
	if snap.Users[userX].LastAction != FlowIdle {
		t.Fatalf("flow not reset, got %q", snap.Users[userX].LastAction)
	}

	for _, admin := range []int64{adminA, adminB} {
		msgs := tr.sentTo(admin)
		if len(msgs) != 1 {
			t.Fatalf("admin %d got %d messages, want 1", admin, len(msgs))
		}
		if msgs[0].Media == nil || msgs[0].Media.FileID != "file-1" {
			t.Fatalf("admin %d notification missing media: %+v", admin, msgs[0])
		}
		if len(msgs[0].Buttons) == 0 {
			t.Fatalf("admin %d notification missing buttons", admin)
		}
	}
}

func TestSubmitWithoutFlowFails(t *testing.T) {
	svc, tr, _ := newTestService(t)
	svc.RegisterUser(userX, "Alice")

	if _, err := svc.SubmitPayment(userX, "ref", nil); !errors.Is(err, ErrWrongFlow) {
		t.Fatalf("expected ErrWrongFlow, got %v", err)
	}
	if _, err := svc.SubmitTech(userX, "broken"); !errors.Is(err, ErrWrongFlow) {
		t.Fatalf("expected ErrWrongFlow, got %v", err)
	}
	if len(tr.sent) != 0 {
		t.Fatalf("no notifications expected, got %d", len(tr.sent))
	}
}

func TestSubmitTechRequiresMatchingFlow(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.RegisterUser(userX, "Alice")
	svc.BeginPayment(userX, ServiceDark)

	if _, err := svc.SubmitTech(userX, "broken"); !errors.Is(err, ErrWrongFlow) {
		t.Fatalf("expected ErrWrongFlow for mismatched flow, got %v", err)
	}
	// The payment flow must survive the failed tech submission.
	if got := svc.Flow(userX); got != FlowAwaitingPayment {
		t.Fatalf("flow = %q, want awaiting_payment", got)
	}
}

func TestApproveSendsLinkAndResolves(t *testing.T) {
	svc, tr, st := newTestService(t)
	if err := svc.SetVipLink(adminA, "https://t.me/vip"); err != nil {
		t.Fatalf("SetVipLink: %v", err)
	}
	res := submitPayment(t, svc, ServiceVIP)
	tr.reset()

	out, err := svc.ResolvePayment(adminA, res.TicketID, "approve_vip")
	if err != nil {
		t.Fatalf("ResolvePayment: %v", err)
	}
	if out.Outcome != OutcomeApproved || out.LinksSent != 1 || out.UserID != userX {
		t.Fatalf("unexpected result: %+v", out)
	}

	msgs := tr.sentTo(userX)
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "https://t.me/vip") {
		t.Fatalf("user did not receive the link: %+v", msgs)
	}

	snap := st.last(t)
	if _, ok := snap.Pending[res.TicketID]; ok {
		t.Fatal("ticket still pending after approval")
	}
	if snap.Counters.LinksSent != 1 {
		t.Fatalf("LinksSent = %d, want 1", snap.Counters.LinksSent)
	}
}

func TestApproveBothSendsBothLinks(t *testing.T) {
	svc, tr, st := newTestService(t)
	if err := svc.SetBothLinks(adminA, "https://t.me/vip", "https://t.me/dark"); err != nil {
		t.Fatalf("SetBothLinks: %v", err)
	}
	res := submitPayment(t, svc, ServiceBoth)
	tr.reset()

	out, err := svc.ResolvePayment(adminB, res.TicketID, "approve_both")
	if err != nil {
		t.Fatalf("ResolvePayment: %v", err)
	}
	if out.LinksSent != 2 {
		t.Fatalf("LinksSent = %d, want 2", out.LinksSent)
	}
	if got := len(tr.sentTo(userX)); got != 2 {
		t.Fatalf("user got %d messages, want 2", got)
	}
	if st.last(t).Counters.LinksSent != 2 {
		t.Fatalf("persisted LinksSent = %d, want 2", st.last(t).Counters.LinksSent)
	}
}

func TestApproveWithoutLinkKeepsTicketOpen(t *testing.T) {
	svc, tr, st := newTestService(t)
	res := submitPayment(t, svc, ServiceVIP)
	tr.reset()

	_, err := svc.ResolvePayment(adminA, res.TicketID, "approve_vip")
	if !errors.Is(err, ErrNoLinkConfigured) {
		t.Fatalf("expected ErrNoLinkConfigured, got %v", err)
	}
	if len(tr.sent) != 0 {
		t.Fatalf("no user notification expected, got %d", len(tr.sent))
	}

	snap := st.last(t)
	if _, ok := snap.Pending[res.TicketID]; !ok {
		t.Fatal("ticket must stay pending after a failed approval")
	}
	if snap.Counters.LinksSent != 0 {
		t.Fatalf("LinksSent = %d, want 0", snap.Counters.LinksSent)
	}

	// Retry succeeds once the link is configured.
	if err := svc.SetVipLink(adminA, "https://t.me/vip"); err != nil {
		t.Fatalf("SetVipLink: %v", err)
	}
	if _, err := svc.ResolvePayment(adminA, res.TicketID, "approve_vip"); err != nil {
		t.Fatalf("retry after configuring link: %v", err)
	}
}

func TestDeclineResolvesAndNotifies(t *testing.T) {
	svc, tr, st := newTestService(t)
	res := submitPayment(t, svc, ServiceDark)
	tr.reset()

	out, err := svc.ResolvePayment(adminA, res.TicketID, "decline")
	if err != nil {
		t.Fatalf("ResolvePayment: %v", err)
	}
	if out.Outcome != OutcomeDeclined {
		t.Fatalf("outcome = %q, want declined", out.Outcome)
	}
	msgs := tr.sentTo(userX)
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "declined") {
		t.Fatalf("user did not receive the decline notice: %+v", msgs)
	}
	if _, ok := st.last(t).Pending[res.TicketID]; ok {
		t.Fatal("ticket still pending after decline")
	}
}

func TestDoubleResolveIsSafe(t *testing.T) {
	svc, tr, _ := newTestService(t)
	if err := svc.SetVipLink(adminA, "https://t.me/vip"); err != nil {
		t.Fatalf("SetVipLink: %v", err)
	}
	res := submitPayment(t, svc, ServiceVIP)
	tr.reset()

	if _, err := svc.ResolvePayment(adminA, res.TicketID, "approve_vip"); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if _, err := svc.ResolvePayment(adminB, res.TicketID, "decline"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("second resolve: expected ErrTicketNotFound, got %v", err)
	}
	// Exactly one user notification from the first press.
	if got := len(tr.sentTo(userX)); got != 1 {
		t.Fatalf("user got %d messages, want 1", got)
	}
}

func TestResolveRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	res := submitPayment(t, svc, ServiceVIP)

	if _, err := svc.ResolvePayment(userX, res.TicketID, "decline"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.ResolveTech(userX, res.TicketID, "ignore"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveRejectsKindMismatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	res := submitPayment(t, svc, ServiceVIP)

	// A payment ticket cannot be resolved through the tech actions.
	if _, err := svc.ResolveTech(adminA, res.TicketID, "ignore"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}

func TestIgnoreResolvesTechTicket(t *testing.T) {
	svc, tr, st := newTestService(t)
	res := submitTech(t, svc, "cannot log in")
	tr.reset()

	out, err := svc.ResolveTech(adminA, res.TicketID, "ignore")
	if err != nil {
		t.Fatalf("ResolveTech: %v", err)
	}
	if out.Outcome != OutcomeIgnored {
		t.Fatalf("outcome = %q, want ignored", out.Outcome)
	}
	if len(tr.sentTo(userX)) != 1 {
		t.Fatal("user should be told the issue was ignored")
	}
	if _, ok := st.last(t).Pending[res.TicketID]; ok {
		t.Fatal("ticket still pending after ignore")
	}
}

func TestQuickReplyDeliversThenResolves(t *testing.T) {
	svc, tr, st := newTestService(t)
	res := submitTech(t, svc, "cannot log in")
	tr.reset()

	out, err := svc.ResolveTech(adminA, res.TicketID, "reply")
	if err != nil {
		t.Fatalf("ResolveTech: %v", err)
	}
	if out.Outcome != OutcomeReplyPrompt {
		t.Fatalf("outcome = %q, want reply_prompt", out.Outcome)
	}
	// Reply alone must not resolve the ticket.
	if _, ok := st.last(t).Pending[res.TicketID]; !ok {
		t.Fatal("ticket resolved before the reply was sent")
	}
	if _, active := svc.ActiveSession(adminA); !active {
		t.Fatal("expected an active quick-reply session")
	}

	sres, err := svc.ConsumeSessionText(adminA, "try resetting your password")
	if err != nil {
		t.Fatalf("ConsumeSessionText: %v", err)
	}
	if sres.Mode != ModeQuickReply || sres.UserID != userX || sres.TicketID != res.TicketID {
		t.Fatalf("unexpected session result: %+v", sres)
	}

	msgs := tr.sentTo(userX)
	if len(msgs) != 1 || !strings.HasPrefix(msgs[0].Text, "Admin: ") {
		t.Fatalf("user reply missing prefix: %+v", msgs)
	}
	if _, ok := st.last(t).Pending[res.TicketID]; ok {
		t.Fatal("ticket still pending after delivered reply")
	}
	if _, active := svc.ActiveSession(adminA); active {
		t.Fatal("session should be cleared after consumption")
	}
}

func TestQuickReplyDeliveryFailureKeepsTicketOpen(t *testing.T) {
	svc, tr, st := newTestService(t)
	res := submitTech(t, svc, "cannot log in")
	if _, err := svc.ResolveTech(adminA, res.TicketID, "reply"); err != nil {
		t.Fatalf("ResolveTech: %v", err)
	}

	tr.fail[userX] = true
	if _, err := svc.ConsumeSessionText(adminA, "hello"); err == nil {
		t.Fatal("expected delivery error")
	}
	if _, ok := st.last(t).Pending[res.TicketID]; !ok {
		t.Fatal("ticket must stay open when the reply cannot be delivered")
	}
	if _, active := svc.ActiveSession(adminA); !active {
		t.Fatal("session must stay active for a retry")
	}
}

func TestCancelledQuickReplyLeavesTicketOpen(t *testing.T) {
	svc, _, st := newTestService(t)
	res := submitTech(t, svc, "cannot log in")
	if _, err := svc.ResolveTech(adminA, res.TicketID, "reply"); err != nil {
		t.Fatalf("ResolveTech: %v", err)
	}

	if err := svc.CancelSession(adminA); err != nil {
		t.Fatalf("CancelSession: %v", err)
	}
	if _, ok := st.last(t).Pending[res.TicketID]; !ok {
		t.Fatal("ticket must stay open after a cancelled reply")
	}
	// Another admin can still pick it up.
	if _, err := svc.ResolveTech(adminB, res.TicketID, "ignore"); err != nil {
		t.Fatalf("second admin resolve: %v", err)
	}
}

func TestCancelWithoutSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.CancelSession(adminA); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestStartSessionReplacesPrevious(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.StartSession(adminA, ModeSetVip); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := svc.StartSession(adminA, ModeBroadcast); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	sess, ok := svc.ActiveSession(adminA)
	if !ok || sess.Mode != ModeBroadcast {
		t.Fatalf("session = %+v, want broadcast mode", sess)
	}
}

func TestSessionSetBothRequiresTwoFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.StartSession(adminA, ModeSetBoth); err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if _, err := svc.ConsumeSessionText(adminA, "only-one-link"); err == nil {
		t.Fatal("expected an error for a single field")
	}
	// A malformed payload keeps the session for a retry.
	if _, active := svc.ActiveSession(adminA); !active {
		t.Fatal("session should survive a malformed payload")
	}
	if _, err := svc.ConsumeSessionText(adminA, "https://t.me/vip https://t.me/dark"); err != nil {
		t.Fatalf("ConsumeSessionText: %v", err)
	}
	links, err := svc.Links(adminA)
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if links.Vip != "https://t.me/vip" || links.Dark != "https://t.me/dark" {
		t.Fatalf("links = %+v", links)
	}
}

func TestBroadcastReportsPartialDelivery(t *testing.T) {
	svc, tr, _ := newTestService(t)
	for i := int64(1); i <= 5; i++ {
		svc.RegisterUser(i, fmt.Sprintf("user-%d", i))
	}
	tr.fail[3] = true
	tr.reset()

	rep, err := svc.Broadcast(adminA, "maintenance tonight")
	if err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if rep.Total != 5 || rep.Delivered != 4 {
		t.Fatalf("report = %+v, want 4/5", rep)
	}
	if len(tr.sentTo(3)) != 0 {
		t.Fatal("failed recipient should not have a recorded delivery")
	}
}

func TestBroadcastRequiresAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Broadcast(userX, "hi"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestInsightsSnapshot(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.SetVipLink(adminA, "https://t.me/vip"); err != nil {
		t.Fatalf("SetVipLink: %v", err)
	}
	submitPayment(t, svc, ServiceVIP)
	submitTech(t, svc, "broken")

	rep, err := svc.Insights(adminA)
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if rep.Counters.PaymentSubmitted != 1 || rep.Counters.TechSubmitted != 1 {
		t.Fatalf("counters = %+v", rep.Counters)
	}
	if rep.PendingTotal != 2 || rep.UsersTotal != 1 {
		t.Fatalf("totals = pending %d users %d", rep.PendingTotal, rep.UsersTotal)
	}
	if rep.VipLink != "https://t.me/vip" {
		t.Fatalf("VipLink = %q", rep.VipLink)
	}
}

func TestStateSurvivesReload(t *testing.T) {
	svc, _, st := newTestService(t)
	if err := svc.SetVipLink(adminA, "https://t.me/vip"); err != nil {
		t.Fatalf("SetVipLink: %v", err)
	}
	res := submitPayment(t, svc, ServiceVIP)

	// Rebuild the engine from the last persisted snapshot, as a restart would.
	snap := st.last(t)
	svc2 := New(Options{
		Store:     &memStore{initial: &snap},
		Policy:    NewPolicy(adminA),
		Transport: &fakeTransport{fail: make(map[int64]bool)},
	})

	if _, err := svc2.ResolvePayment(adminA, res.TicketID, "approve_vip"); err != nil {
		t.Fatalf("resolve after reload: %v", err)
	}
}

func TestNonAdminCannotTouchAdminState(t *testing.T) {
	svc, tr, st := newTestService(t)

	calls := []struct {
		name string
		do   func() error
	}{
		{"set_vip_link", func() error { return svc.SetVipLink(userX, "https://t.me/vip") }},
		{"set_both_links", func() error { return svc.SetBothLinks(userX, "https://t.me/vip", "https://t.me/dark") }},
		{"links", func() error { _, err := svc.Links(userX); return err }},
		{"start_session", func() error { return svc.StartSession(userX, ModeBroadcast) }},
		{"cancel_session", func() error { return svc.CancelSession(userX) }},
		{"consume_text", func() error { _, err := svc.ConsumeSessionText(userX, "hello"); return err }},
		{"insights", func() error { _, err := svc.Insights(userX); return err }},
		{"direct_reply", func() error { return svc.DirectReply(userX, userX, "hi") }},
	}
	for _, call := range calls {
		if err := call.do(); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s: err = %v, want ErrUnauthorized", call.name, err)
		}
	}

	if n := len(st.snapshots); n != 0 {
		t.Fatalf("unauthorized calls persisted state %d times", n)
	}
	if _, active := svc.ActiveSession(userX); active {
		t.Fatal("unauthorized call opened a session")
	}
	if len(tr.sent) != 0 {
		t.Fatalf("unauthorized calls delivered %d messages", len(tr.sent))
	}
}
