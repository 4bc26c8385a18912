package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/api"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/realtime"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(Config{JWTSecret: "test-secret"})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, ts
}

func login(t *testing.T, ts *httptest.Server, username, password string) (*api.Client, api.LoginResponse) {
	t.Helper()
	var token string
	client := api.NewClient(ts.URL+APIPrefix, api.WithTokenSource(func() string { return token }))
	resp, err := client.Login(context.Background(), username, password)
	require.NoError(t, err)
	token = resp.Token
	return client, resp
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	_, ts := newTestServer(t)

	_, resp := login(t, ts, "medecin", "medecin")
	assert.Equal(t, int64(2), resp.ID)
	assert.Equal(t, "medecin", resp.Username)
	assert.Equal(t, string(route.RoleMedecin), resp.PrimaryRole())
	assert.NotEmpty(t, resp.Token)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	_, ts := newTestServer(t)
	client := api.NewClient(ts.URL + APIPrefix)

	_, err := client.Login(context.Background(), "admin", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestNotificationsRequireToken(t *testing.T) {
	_, ts := newTestServer(t)
	client := api.NewClient(ts.URL + APIPrefix)

	_, err := client.FetchUnread(context.Background(), 1)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestNotificationsOfAnotherUserAreForbidden(t *testing.T) {
	_, ts := newTestServer(t)
	client, _ := login(t, ts, "admin", "admin")

	_, err := client.FetchUnread(context.Background(), 2)
	assert.ErrorIs(t, err, api.ErrUnauthorized)
}

func TestFetchAndMarkRead(t *testing.T) {
	s, ts := newTestServer(t)
	s.SeedDemo()
	client, resp := login(t, ts, "admin", "admin")
	ctx := context.Background()

	unread, err := client.FetchUnread(ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, unread, 3)
	assert.Greater(t, unread[0].ID, unread[1].ID, "newest first")
	for _, n := range unread {
		assert.Equal(t, resp.ID, n.UtilisateurID)
		assert.False(t, n.Lu)
	}

	require.NoError(t, client.MarkRead(ctx, unread[0].ID))

	unread, err = client.FetchUnread(ctx, resp.ID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	all, err := client.FetchAll(ctx, resp.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	_, ts := newTestServer(t)
	client, _ := login(t, ts, "admin", "admin")

	err := client.MarkRead(context.Background(), 999)
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestRequestIDHeader(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "abc", resp2.Header.Get("X-Request-ID"))
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tokens := NewTokens("secret", time.Hour, clock)

	raw, err := tokens.Issue(7)
	require.NoError(t, err)
	id, err := tokens.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	other := NewTokens("other", time.Hour, clock)
	_, err = other.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokens("secret", time.Hour, func() time.Time { return now.Add(2 * time.Hour) })
	_, err = later.Validate(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStoreTimeAgo(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "à l'instant", timeAgo(now, now.Add(-10*time.Second).Format(dateLayout)))
	assert.Equal(t, "il y a 5 min", timeAgo(now, now.Add(-5*time.Minute).Format(dateLayout)))
	assert.Equal(t, "il y a 3 h", timeAgo(now, now.Add(-3*time.Hour).Format(dateLayout)))
	assert.Equal(t, "il y a 2 j", timeAgo(now, now.Add(-48*time.Hour).Format(dateLayout)))
	assert.Equal(t, "", timeAgo(now, "garbage"))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath
}

type frameSink struct {
	mu     sync.Mutex
	frames []notification.Frame
	opened chan struct{}
}

func newFrameSink() *frameSink {
	return &frameSink{opened: make(chan struct{})}
}

func (f *frameSink) onOpen() { close(f.opened) }

func (f *frameSink) onMessage(frame notification.Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
}

func (f *frameSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *frameSink) snapshot() []notification.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification.Frame(nil), f.frames...)
}

func TestRealtimeRoundTrip(t *testing.T) {
	s, ts := newTestServer(t)
	_, resp := login(t, ts, "secretaire", "secretaire")

	m := realtime.NewManager(realtime.NewWebSocketDialer(2*time.Second), wsURL(ts),
		realtime.WithTokenSource(func() string { return resp.Token }))
	sink := newFrameSink()
	m.Connect(resp.ID, sink.onMessage, sink.onOpen, nil)
	t.Cleanup(func() {
		m.Disconnect()
		m.Wait()
	})

	select {
	case <-sink.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("connection never opened")
	}
	require.Eventually(t, func() bool { return s.Connected(resp.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	_, sent, err := s.PushMessage(resp.ID, 42, "Dr. Martin", "Équipe", "premier")
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	_, _, err = s.PushMessage(resp.ID, 42, "Dr. Martin", "Équipe", "second")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return sink.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	frames := sink.snapshot()
	assert.True(t, frames[0].IsNewMessage())
	assert.Equal(t, "premier", frames[0].Message.Contenu)
	assert.Equal(t, "second", frames[1].Message.Contenu)
	assert.Equal(t, "Dr. Martin", frames[0].Message.SenderName())
	assert.Equal(t, int64(42), frames[0].Message.ConversationID)

	unread := s.Store().List(resp.ID, true)
	assert.Len(t, unread, 2)

	m.Disconnect()
	require.Eventually(t, func() bool { return s.Connected(resp.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeRejectsForeignToken(t *testing.T) {
	s, ts := newTestServer(t)
	token, err := s.Tokens().Issue(1)
	require.NoError(t, err)

	dialer := realtime.NewWebSocketDialer(2 * time.Second)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	_, err = dialer.Dial(context.Background(), wsURL(ts)+"?userId=2", header)
	assert.Error(t, err)
}

func TestRealtimeRequiresUserID(t *testing.T) {
	_, ts := newTestServer(t)

	dialer := realtime.NewWebSocketDialer(2 * time.Second)
	_, err := dialer.Dial(context.Background(), wsURL(ts), nil)
	assert.Error(t, err)
}
