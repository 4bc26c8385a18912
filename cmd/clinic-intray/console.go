package main

import (
	"context"

	"github.com/gestionclinique/clinic-intray/internal/config"
	clierrors "github.com/gestionclinique/clinic-intray/internal/errors"
	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/realtime"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"github.com/gestionclinique/clinic-intray/internal/session"
	"github.com/gestionclinique/clinic-intray/internal/surface"
	"github.com/gestionclinique/clinic-intray/internal/toast"
)

// connector is the realtime side of a console.
type connector interface {
	surface.Connector
	Disconnect()
	Wait()
}

// consoleDeps are the collaborators a console is built from.
type consoleDeps struct {
	Store   session.Store
	Source  surface.NotificationSource
	Conn    connector
	Journal surface.Journal
	Logger  logging.Logger
	// Report shows surface failures to the user.
	Report clierrors.ErrorHandler
}

// console is one running set of surfaces sharing a route and a connection.
type console struct {
	tracker   *route.Tracker
	global    *surface.Global
	chat      *surface.Chat
	toasts    *toast.Provider
	publisher toast.Publisher
	conn      connector
}

// newConsole mounts both surfaces on initialRoute. Both follow the tracker
// afterwards.
func newConsole(ctx context.Context, deps consoleDeps, initialRoute string) *console {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	tracker := route.NewTracker(initialRoute)

	opts := []surface.Option{
		surface.WithTransientTTL(config.GetMillis("transient_ttl_ms", surface.DefaultTransientTTL)),
		surface.WithLogger(logger.With("surface", "global")),
	}
	if deps.Journal != nil {
		opts = append(opts, surface.WithJournal(deps.Journal))
	}
	if deps.Report != nil {
		opts = append(opts, surface.WithErrorHandler(deps.Report))
	}
	global := surface.NewGlobal(deps.Store, deps.Source, deps.Conn, tracker, opts...)
	chat := surface.NewChat(deps.Store, deps.Conn, logger.With("surface", "chat"))

	toasts := toast.NewProvider(toast.WithDefaultDuration(config.GetMillis("toast_duration_ms", toast.DefaultDuration)))
	c := &console{
		tracker:   tracker,
		global:    global,
		chat:      chat,
		toasts:    toasts,
		publisher: toasts.Mount(),
		conn:      deps.Conn,
	}

	global.Bind(tracker)
	chat.Bind(tracker)
	chat.Mount(tracker.Path())
	global.Mount(ctx, tracker.Path())
	return c
}

// close unmounts everything and waits for the realtime reader to stop.
func (c *console) close() {
	c.global.Unmount()
	c.chat.Unmount()
	c.toasts.Unmount()
	c.conn.Disconnect()
	c.conn.Wait()
}

// buildConsoleDeps wires the configured services.
func buildConsoleDeps() (consoleDeps, error) {
	store, err := svc.Session()
	if err != nil {
		return consoleDeps{}, err
	}
	client, err := svc.API()
	if err != nil {
		return consoleDeps{}, err
	}
	manager, err := svc.Realtime()
	if err != nil {
		return consoleDeps{}, err
	}
	deps := consoleDeps{
		Store:  store,
		Source: client,
		Conn:   manager,
		Logger: logging.With("component", "console"),
	}
	journal, err := svc.History()
	if err != nil {
		logging.Warn("history disabled", "error", err.Error())
	} else if journal != nil {
		deps.Journal = journal
	}
	return deps, nil
}

var _ connector = (*realtime.Manager)(nil)
