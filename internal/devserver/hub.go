package devserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/logging"
	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 32
)

type subscriber struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// hub fans realtime frames out to the sockets of each user.
type hub struct {
	logger logging.Logger

	mu   sync.Mutex
	subs map[int64]map[*subscriber]struct{}
	wg   sync.WaitGroup
}

func newHub(logger logging.Logger) *hub {
	return &hub{logger: logger, subs: make(map[int64]map[*subscriber]struct{})}
}

// attach registers conn for userID and serves it until the peer goes away.
func (h *hub) attach(userID int64, conn *websocket.Conn) {
	s := &subscriber{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[userID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	h.logger.Info("websocket attached", "user_id", userID)

	h.wg.Add(2)
	go h.writeLoop(s)
	go h.readLoop(s)
}

// readLoop discards inbound frames and detaches the socket once it fails.
func (h *hub) readLoop(s *subscriber) {
	defer h.wg.Done()
	defer h.detach(s)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *hub) writeLoop(s *subscriber) {
	defer h.wg.Done()
	defer s.conn.Close()
	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Warn("websocket write failed", "user_id", s.userID, "error", err.Error())
				return
			}
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

func (h *hub) detach(s *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[s.userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.userID)
		}
	}
	h.mu.Unlock()
	s.stop()
	h.logger.Info("websocket detached", "user_id", s.userID)
}

// push sends frame to every socket of userID and returns how many got it.
// A socket whose buffer is full is skipped.
func (h *hub) push(userID int64, frame notification.Frame) (int, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for s := range h.subs[userID] {
		select {
		case s.send <- data:
			sent++
		default:
			h.logger.Warn("websocket buffer full, frame dropped", "user_id", userID)
		}
	}
	return sent, nil
}

// connected returns the number of open sockets of userID.
func (h *hub) connected(userID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// close stops every socket and waits for their goroutines.
func (h *hub) close() {
	h.mu.Lock()
	for _, set := range h.subs {
		for s := range set {
			s.stop()
		}
	}
	h.mu.Unlock()
	h.wg.Wait()
}
