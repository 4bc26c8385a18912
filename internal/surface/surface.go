// Package surface implements the notification surfaces of the console: the
// global surface that lists unread notifications and turns realtime frames
// into temporary entries, and the chat surface that owns the realtime
// connection on chat routes.
package surface

import (
	"context"

	"github.com/gestionclinique/clinic-intray/internal/history"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/realtime"
)

// NotificationSource is the REST side the global surface needs.
type NotificationSource interface {
	FetchUnread(ctx context.Context, userID int64) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id int64) error
}

// Connector is the realtime side both surfaces share.
type Connector interface {
	Connect(userID int64, onMessage realtime.MessageHandler, onOpen, onClose func()) realtime.Lease
	Release(lease realtime.Lease) bool
}

// Navigator receives navigation targets.
type Navigator interface {
	Navigate(path string)
}

// Journal records what happened to entries.
type Journal interface {
	Record(ctx context.Context, e history.Event) (int64, error)
}

// RouteSource is the shared current-path source. Leave hooks run before
// path subscribers so the previous owner releases the connection first.
type RouteSource interface {
	Path() string
	OnLeave(fn func(from, to string)) (unsubscribe func())
	Subscribe(fn func(path string)) (unsubscribe func())
}
