package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/api"
	"github.com/gestionclinique/clinic-intray/internal/devserver"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/realtime"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"github.com/gestionclinique/clinic-intray/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a dev server plus a signed-in session for one of its users.
type backend struct {
	server *devserver.Server
	store  *session.MemoryStore
	deps   consoleDeps
}

func newBackend(t *testing.T, username string) *backend {
	t.Helper()
	srv, err := devserver.New(devserver.Config{JWTSecret: "console-test"})
	require.NoError(t, err)
	srv.SeedDemo()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})

	store := session.NewMemoryStore()
	client := api.NewClient(ts.URL+devserver.APIPrefix, api.WithTokenSource(tokenSource(store)))
	resp, err := client.Login(context.Background(), username, username)
	require.NoError(t, err)
	require.NoError(t, store.Save(session.Session{
		Token:    resp.Token,
		UserID:   resp.ID,
		Role:     route.EncodeRole(route.Role(resp.PrimaryRole())),
		Username: resp.Username,
	}))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + devserver.WebSocketPath
	manager := realtime.NewManager(realtime.NewWebSocketDialer(2*time.Second), wsURL,
		realtime.WithTokenSource(tokenSource(store)))

	return &backend{
		server: srv,
		store:  store,
		deps:   consoleDeps{Store: store, Source: client, Conn: manager},
	}
}

func (b *backend) userID(t *testing.T) int64 {
	t.Helper()
	sess, err := b.store.Load()
	require.NoError(t, err)
	return sess.UserID
}

func TestConsoleLoadsUnreadAndReceivesLiveMessages(t *testing.T) {
	b := newBackend(t, "medecin")
	userID := b.userID(t)

	con := newConsole(context.Background(), b.deps, route.DashboardPath)
	defer con.close()

	snap := con.global.Snapshot()
	assert.True(t, snap.HasUser)
	// the seeded SYSTEME notification is not displayable
	assert.Len(t, snap.Entries, 2)
	assert.Equal(t, 2, snap.Unread)

	require.Eventually(t, func() bool {
		return con.global.Snapshot().Connected && b.server.Connected(userID) == 1
	}, 3*time.Second, 10*time.Millisecond)

	_, _, err := b.server.PushMessage(userID, 7, "Claire Dubois", "Accueil", "Patient arrivé")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(con.global.Snapshot().Entries) == 3
	}, 3*time.Second, 10*time.Millisecond)
	top := con.global.Snapshot().Entries[0]
	assert.True(t, top.Temporary)
	assert.Equal(t, notification.TypeMessage, top.Type)
	assert.Equal(t, "Claire Dubois", top.SenderName)
	assert.Equal(t, "Patient arrivé", top.Preview)
}

func TestConsoleHandsConnectionToChat(t *testing.T) {
	b := newBackend(t, "secretaire")
	userID := b.userID(t)

	con := newConsole(context.Background(), b.deps, route.DashboardPath)
	defer con.close()
	require.Eventually(t, func() bool { return con.global.HoldsConnection() && con.global.Snapshot().Connected },
		3*time.Second, 10*time.Millisecond)

	con.tracker.Navigate(route.SecretaireChatPath)

	assert.False(t, con.global.HoldsConnection())
	assert.True(t, con.chat.HoldsConnection())
	require.Eventually(t, func() bool { return con.chat.Connected() }, 3*time.Second, 10*time.Millisecond)

	// the server may attach the new socket after the client sees it open
	require.Eventually(t, func() bool {
		if len(con.chat.Messages()) > 0 {
			return true
		}
		_, _, err := b.server.PushMessage(userID, 3, "Dr. Martin", "Équipe", "vu dans le chat")
		assert.NoError(t, err)
		return false
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, "vu dans le chat", con.chat.Messages()[0].Contenu)
	assert.Len(t, con.global.Snapshot().Entries, 2, "no temporary entry on a chat route")

	con.tracker.Navigate(route.DashboardPath)
	assert.True(t, con.global.HoldsConnection())
	assert.False(t, con.chat.HoldsConnection())
}

func TestConsoleWithoutUserStaysIdle(t *testing.T) {
	b := newBackend(t, "admin")
	require.NoError(t, b.store.Clear())

	con := newConsole(context.Background(), b.deps, route.DashboardPath)
	defer con.close()

	snap := con.global.Snapshot()
	assert.False(t, snap.HasUser)
	assert.Empty(t, snap.Entries)
	assert.False(t, con.global.HoldsConnection())
	assert.False(t, con.chat.HoldsConnection())
}

func TestConsoleClickMarksReadAndNavigates(t *testing.T) {
	b := newBackend(t, "admin")
	userID := b.userID(t)

	con := newConsole(context.Background(), b.deps, route.DashboardPath)
	defer con.close()

	var rdv string
	for _, e := range con.global.Snapshot().Entries {
		if e.Type == notification.TypeRendezVous {
			rdv = e.Key
		}
	}
	require.NotEmpty(t, rdv)

	dest, ok := con.global.Click(context.Background(), rdv)
	require.True(t, ok)
	assert.Equal(t, route.RendezVousPath, dest)
	assert.Equal(t, route.RendezVousPath, con.tracker.Path())

	unread := notification.FilterDisplayable(b.server.Store().List(userID, true))
	assert.Len(t, unread, 1)
}
