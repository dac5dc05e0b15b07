package alerts

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"horse.fit/newswire/internal/db"
)

func testRules() []db.AlertRule {
	return []db.AlertRule{
		{ID: 1, Name: "sismos", Keywords: []string{"Terremoto", "sismo"}, UrgencyLevel: "critical", Active: true},
		{ID: 2, Name: "economia", Keywords: []string{"inflación"}, Categories: []string{"Economía"}, UrgencyLevel: "medium", Active: true},
		{ID: 3, Name: "solo-diario", Keywords: []string{"sismo"}, Sources: []string{"Diario Uno"}, UrgencyLevel: "high", Active: true},
		{ID: 4, Name: "inactiva", Keywords: []string{"sismo"}, UrgencyLevel: "low", Active: false},
	}
}

func TestMatcherWordBoundaries(t *testing.T) {
	t.Parallel()

	m := NewMatcher(testRules())
	require.Equal(t, 3, m.RuleCount())

	require.Empty(t, m.Match("Los sismógrafos registran actividad", "", "Otro"))

	matches := m.Match("Fuerte SISMO sacude la costa", "", "Otro")
	require.Len(t, matches, 1)
	require.Equal(t, int64(1), matches[0].RuleID)
	require.Equal(t, "sismo", matches[0].Keyword)
	require.Equal(t, UrgencyCritical, matches[0].Urgency)
}

func TestMatcherFirstKeywordInRuleOrder(t *testing.T) {
	t.Parallel()

	m := NewMatcher(testRules())
	matches := m.Match("Sismo y terremoto en el sur", "", "")
	require.Len(t, matches, 1)
	require.Equal(t, "terremoto", matches[0].Keyword)
}

func TestMatcherFilters(t *testing.T) {
	t.Parallel()

	m := NewMatcher(testRules())

	require.Empty(t, m.Match("La inflación sube", "Deportes", ""))
	matches := m.Match("La inflación sube", "economía", "")
	require.Len(t, matches, 1)
	require.Equal(t, int64(2), matches[0].RuleID)

	matches = m.Match("Un sismo leve", "", "diario uno")
	require.Len(t, matches, 2)
	require.Equal(t, int64(1), matches[0].RuleID)
	require.Equal(t, int64(3), matches[1].RuleID)
}

func TestMatcherWithoutRules(t *testing.T) {
	t.Parallel()

	var nilMatcher *Matcher
	require.Nil(t, nilMatcher.Match("sismo", "", ""))
	require.Nil(t, NewMatcher(nil).Match("sismo", "", ""))
}

func TestHigherUrgency(t *testing.T) {
	t.Parallel()

	require.Equal(t, UrgencyHigh, HigherUrgency(UrgencyLow, UrgencyHigh))
	require.Equal(t, UrgencyCritical, HigherUrgency(UrgencyCritical, UrgencyMedium))
	require.Equal(t, UrgencyLow, HigherUrgency("", UrgencyLow))

	level, ok := NormalizeUrgency(" HIGH ")
	require.True(t, ok)
	require.Equal(t, UrgencyHigh, level)
	_, ok = NormalizeUrgency("urgent")
	require.False(t, ok)
}

type fakeAlertStore struct {
	triggers []db.AlertTrigger
	seen     map[[2]int64]bool
	flagged  map[int64]string
	failOn   int64
}

func (f *fakeAlertStore) RecordAlertTrigger(_ context.Context, trigger *db.AlertTrigger) (bool, error) {
	if f.failOn != 0 && trigger.RuleID == f.failOn {
		return false, errors.New("insert failed")
	}
	if f.seen == nil {
		f.seen = make(map[[2]int64]bool)
	}
	key := [2]int64{trigger.RuleID, trigger.ArticleID}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	f.triggers = append(f.triggers, *trigger)
	return true, nil
}

func (f *fakeAlertStore) MarkArticleAlert(_ context.Context, articleID int64, urgency string) error {
	if f.flagged == nil {
		f.flagged = make(map[int64]string)
	}
	f.flagged[articleID] = urgency
	return nil
}

func TestDispatchRecordsTriggersAndHighestUrgency(t *testing.T) {
	t.Parallel()

	store := &fakeAlertStore{}
	d := NewDispatcher(zerolog.Nop())
	article := &db.Article{ID: 42, Title: "Sismo en la capital", Content: "Reportan daños."}

	n, err := d.Dispatch(context.Background(), store, NewMatcher(testRules()), article, "Diario Uno")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, article.IsAlert)
	require.NotNil(t, article.UrgencyLevel)
	require.Equal(t, UrgencyCritical, *article.UrgencyLevel)
	require.Equal(t, UrgencyCritical, store.flagged[42])

	// Re-dispatching the same article never duplicates a trigger.
	n, err = d.Dispatch(context.Background(), store, NewMatcher(testRules()), article, "Diario Uno")
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, store.triggers, 2)
}

func TestDispatchNoMatch(t *testing.T) {
	t.Parallel()

	store := &fakeAlertStore{}
	article := &db.Article{ID: 7, Title: "Resultados del fútbol"}
	n, err := NewDispatcher(zerolog.Nop()).Dispatch(context.Background(), store, NewMatcher(testRules()), article, "")
	require.NoError(t, err)
	require.Zero(t, n)
	require.False(t, article.IsAlert)
	require.Empty(t, store.flagged)
}

func TestDispatchErrors(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(zerolog.Nop())
	_, err := d.Dispatch(context.Background(), &fakeAlertStore{}, NewMatcher(testRules()), &db.Article{Title: "sismo"}, "")
	require.Error(t, err)

	store := &fakeAlertStore{failOn: 1}
	_, err = d.Dispatch(context.Background(), store, NewMatcher(testRules()), &db.Article{ID: 1, Title: "sismo"}, "")
	require.ErrorContains(t, err, "insert failed")
}

type fakePendingStore struct {
	pending  []db.PendingAlert
	notified []int64
}

func (f *fakePendingStore) PendingAlerts(_ context.Context, limit, maxAttempts int) ([]db.PendingAlert, error) {
	var out []db.PendingAlert
	for _, a := range f.pending {
		if slices.Contains(f.notified, a.TriggerID) || a.Attempts >= maxAttempts {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts < out[j].Attempts
		}
		return out[i].TriggerID < out[j].TriggerID
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePendingStore) MarkAlertNotified(_ context.Context, triggerID int64, _ time.Time) error {
	f.notified = append(f.notified, triggerID)
	return nil
}

func (f *fakePendingStore) RecordAlertAttempt(_ context.Context, triggerID int64, delivered []string, _ string, _ time.Time) error {
	for i := range f.pending {
		if f.pending[i].TriggerID == triggerID {
			f.pending[i].Attempts++
			f.pending[i].DeliveredChannels = append([]string(nil), delivered...)
		}
	}
	return nil
}

type recordingSender struct {
	channel string
	fail    bool
	sent    []int64
}

func (r *recordingSender) Channel() string { return r.channel }

func (r *recordingSender) Send(_ context.Context, alert db.PendingAlert) error {
	if r.fail {
		return errors.New("unreachable")
	}
	r.sent = append(r.sent, alert.TriggerID)
	return nil
}

func TestNotifyPending(t *testing.T) {
	t.Parallel()

	store := &fakePendingStore{pending: []db.PendingAlert{
		{TriggerID: 1, RuleName: "a"},
		{TriggerID: 2, RuleName: "b", Channels: []string{"log", "pager"}},
		{TriggerID: 3, RuleName: "c", Channels: []string{"broken"}},
	}}
	logSender := &recordingSender{channel: "log"}
	pager := &recordingSender{channel: "pager"}
	broken := &recordingSender{channel: "broken", fail: true}

	notifier := NewNotifier(store, zerolog.Nop(), logSender, pager, broken)
	result, err := notifier.NotifyPending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, NotifyResult{Pending: 3, Sent: 2, Failed: 1}, result)
	require.Equal(t, []int64{1, 2}, store.notified)
	require.Equal(t, []int64{1, 2}, logSender.sent)
	require.Equal(t, []int64{2}, pager.sent)
}

func TestNotifyPendingUnknownChannelStaysPending(t *testing.T) {
	t.Parallel()

	store := &fakePendingStore{pending: []db.PendingAlert{{TriggerID: 9, Channels: []string{"sms"}}}}
	result, err := NewNotifier(store, zerolog.Nop(), NewLogSender(zerolog.Nop())).NotifyPending(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Empty(t, store.notified)
	require.Equal(t, 1, store.pending[0].Attempts)
}

func TestNotifyPendingFailingTriggersDoNotStarveNewOnes(t *testing.T) {
	t.Parallel()

	store := &fakePendingStore{}
	for id := int64(1); id <= 5; id++ {
		store.pending = append(store.pending, db.PendingAlert{TriggerID: id, Channels: []string{"telegram"}})
	}
	store.pending = append(store.pending, db.PendingAlert{TriggerID: 6, Channels: []string{"log"}})

	logSender := &recordingSender{channel: "log"}
	notifier := NewNotifier(store, zerolog.Nop(), logSender)
	notifier.MaxAttempts = 2

	first, err := notifier.NotifyPending(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, NotifyResult{Pending: 3, Failed: 3}, first)

	second, err := notifier.NotifyPending(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 1, second.Sent)
	require.Equal(t, []int64{6}, store.notified)
	require.Equal(t, []int64{6}, logSender.sent)

	for range 3 {
		_, err := notifier.NotifyPending(context.Background(), 3)
		require.NoError(t, err)
	}
	left, err := store.PendingAlerts(context.Background(), 10, notifier.MaxAttempts)
	require.NoError(t, err)
	require.Empty(t, left)
	for _, a := range store.pending[:5] {
		require.Equal(t, 2, a.Attempts)
	}
}

func TestNotifyPendingDoesNotResendDeliveredChannels(t *testing.T) {
	t.Parallel()

	store := &fakePendingStore{pending: []db.PendingAlert{
		{TriggerID: 4, RuleName: "sismos", Channels: []string{"log", "pager"}},
	}}
	logSender := &recordingSender{channel: "log"}
	pager := &recordingSender{channel: "pager", fail: true}
	notifier := NewNotifier(store, zerolog.Nop(), logSender, pager)

	result, err := notifier.NotifyPending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, []string{"log"}, store.pending[0].DeliveredChannels)

	pager.fail = false
	result, err = notifier.NotifyPending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, result.Sent)
	require.Equal(t, []int64{4}, store.notified)
	require.Equal(t, []int64{4}, logSender.sent)
	require.Equal(t, []int64{4}, pager.sent)
}

func TestNotifyPendingReportsGiveUp(t *testing.T) {
	t.Parallel()

	store := &fakePendingStore{pending: []db.PendingAlert{{TriggerID: 2, Attempts: 4, Channels: []string{"sms"}}}}
	result, err := NewNotifier(store, zerolog.Nop()).NotifyPending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, NotifyResult{Pending: 1, Failed: 1, GaveUp: 1}, result)
}

func TestTelegramSender(t *testing.T) {
	t.Parallel()

	type request struct {
		path string
		form url.Values
	}
	requests := make(chan request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		requests <- request{path: r.URL.Path, form: form}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewTelegramSender("token123", "fallback-chat")
	sender.APIBase = srv.URL
	link := "https://example.com/n/1"
	err := sender.Send(context.Background(), db.PendingAlert{
		RuleName:       "sismos",
		Target:         "-100200",
		Title:          "Sismo en la capital",
		Link:           &link,
		MatchedKeyword: "sismo",
		UrgencyLevel:   "critical",
	})
	require.NoError(t, err)
	got := <-requests
	require.Equal(t, "/bottoken123/sendMessage", got.path)
	require.Equal(t, "-100200", got.form.Get("chat_id"))
	require.Contains(t, got.form.Get("text"), "[CRITICAL] Sismo en la capital")
	require.Contains(t, got.form.Get("text"), link)
}

func TestTelegramSenderErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	sender := NewTelegramSender("bad", "chat")
	sender.APIBase = srv.URL
	require.ErrorContains(t, sender.Send(context.Background(), db.PendingAlert{}), "401")

	require.ErrorContains(t, NewTelegramSender("", "").Send(context.Background(), db.PendingAlert{}), "misconfigured")
}
