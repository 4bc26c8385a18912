package devserver

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/notification"
	"github.com/gestionclinique/clinic-intray/internal/route"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound is returned for an unknown notification.
	ErrNotFound = errors.New("notification not found")
)

// dateLayout is the backend's timestamp format.
const dateLayout = "2006-01-02T15:04:05"

// User is a seeded account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash []byte
	Role         route.Role
	PhotoURL     string
}

// Seed describes one account created at startup. The password is hashed.
type Seed struct {
	ID          int64
	Username    string
	DisplayName string
	Password    string
	Role        route.Role
}

// DefaultSeeds are the accounts of a fresh development server.
var DefaultSeeds = []Seed{
	{ID: 1, Username: "admin", DisplayName: "Admin Clinique", Password: "admin", Role: route.RoleAdmin},
	{ID: 2, Username: "medecin", DisplayName: "Dr. Martin", Password: "medecin", Role: route.RoleMedecin},
	{ID: 3, Username: "secretaire", DisplayName: "Claire Dubois", Password: "secretaire", Role: route.RoleSecretaire},
}

// Store holds the server's users and notifications in memory.
type Store struct {
	mu            sync.Mutex
	users         map[string]*User
	byID          map[int64]*User
	notifications map[int64]*notification.Notification
	nextID        int64
	nextMessageID int64
	now           func() time.Time
}

// NewStore hashes the seeds' passwords and returns an empty notification store.
func NewStore(seeds []Seed, now func() time.Time) (*Store, error) {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		users:         make(map[string]*User),
		byID:          make(map[int64]*User),
		notifications: make(map[int64]*notification.Notification),
		nextID:        1,
		nextMessageID: 1,
		now:           now,
	}
	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		u := &User{
			ID:           seed.ID,
			Username:     seed.Username,
			DisplayName:  seed.DisplayName,
			PasswordHash: hash,
			Role:         seed.Role,
		}
		s.users[strings.ToLower(seed.Username)] = u
		s.byID[seed.ID] = u
	}
	return s, nil
}

// Authenticate checks a username and password.
func (s *Store) Authenticate(username, password string) (User, error) {
	s.mu.Lock()
	u, ok := s.users[strings.ToLower(username)]
	s.mu.Unlock()
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return *u, nil
}

// User returns the user with the given id.
func (s *Store) User(id int64) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Add stores n for its UtilisateurID, assigning an id and a creation date.
func (s *Store) Add(n notification.Notification) notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.nextID
	s.nextID++
	if n.DateCreation == "" {
		n.DateCreation = s.now().Format(dateLayout)
	}
	stored := n
	s.notifications[n.ID] = &stored
	return stored
}

// AddMessage stores a MESSAGE notification for recipient and returns it with
// the chat message a realtime frame carries.
func (s *Store) AddMessage(recipient, conversationID int64, sender, conversation, text string) (notification.Notification, notification.Message) {
	s.mu.Lock()
	messageID := s.nextMessageID
	s.nextMessageID++
	s.mu.Unlock()

	convID := conversationID
	n := s.Add(notification.Notification{
		Type:             notification.TypeMessage,
		Contenu:          "Nouveau message de " + sender,
		UtilisateurID:    recipient,
		MessageID:        &messageID,
		SenderName:       sender,
		ConversationName: conversation,
		ConversationID:   &convID,
		MessagePreview:   text,
	})
	msg := notification.Message{
		ID:             messageID,
		ConversationID: conversationID,
		Contenu:        text,
		Expediteur:     &notification.Sender{Nom: sender},
	}
	return n, msg
}

// List returns the user's notifications, newest first. unreadOnly skips read ones.
func (s *Store) List(userID int64, unreadOnly bool) []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]notification.Notification, 0)
	for _, n := range s.notifications {
		if n.UtilisateurID != userID || (unreadOnly && n.Lu) {
			continue
		}
		item := *n
		item.TimeAgo = timeAgo(now, item.DateCreation)
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// MarkRead flags a notification read. Marking it twice is not an error.
func (s *Store) MarkRead(id int64) (notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return notification.Notification{}, ErrNotFound
	}
	n.Lu = true
	return *n, nil
}

func timeAgo(now time.Time, created string) string {
	t, err := time.ParseInLocation(dateLayout, created, now.Location())
	if err != nil {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "à l'instant"
	case d < time.Hour:
		return "il y a " + strconv.Itoa(int(d/time.Minute)) + " min"
	case d < 24*time.Hour:
		return "il y a " + strconv.Itoa(int(d/time.Hour)) + " h"
	default:
		return "il y a " + strconv.Itoa(int(d/(24*time.Hour))) + " j"
	}
}
