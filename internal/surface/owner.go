package surface

import (
	"sync"

	"github.com/gestionclinique/clinic-intray/internal/realtime"
	"github.com/gestionclinique/clinic-intray/internal/route"
)

// owner tracks whether one surface holds the shared realtime connection.
// Both surfaces decide with route.IsChatRoute, so on any path exactly one
// of them wants the connection.
type owner struct {
	conn   Connector
	onChat bool

	mu    sync.Mutex
	lease realtime.Lease
	// gen changes on every acquire and release so a close report from an
	// earlier connection is ignored.
	gen uint64
}

// wants reports whether this surface should hold the connection on path.
func (o *owner) wants(path string) bool {
	return route.IsChatRoute(path) == o.onChat
}

func (o *owner) holds() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lease != ""
}

// release closes the connection if this surface opened it and it is still
// the manager's current one.
func (o *owner) release() bool {
	o.mu.Lock()
	lease := o.lease
	o.lease = ""
	o.gen++
	o.mu.Unlock()
	if lease == "" {
		return false
	}
	return o.conn.Release(lease)
}

// acquire connects for userID. onLost runs when that connection ends without
// this owner releasing it.
func (o *owner) acquire(userID int64, onMessage realtime.MessageHandler, onOpen, onLost func()) {
	o.mu.Lock()
	o.gen++
	gen := o.gen
	o.mu.Unlock()

	lease := o.conn.Connect(userID, onMessage, onOpen, func() {
		o.mu.Lock()
		if o.gen != gen {
			o.mu.Unlock()
			return
		}
		o.lease = ""
		o.gen++
		o.mu.Unlock()
		onLost()
	})

	o.mu.Lock()
	if o.gen == gen {
		o.lease = lease
	}
	o.mu.Unlock()
}
