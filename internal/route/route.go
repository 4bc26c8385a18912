// Package route holds the navigation rules shared by every component that
// reacts to the current path: which paths belong to the chat, and where a
// notification click leads.
package route

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gestionclinique/clinic-intray/internal/notification"
)

// Navigation targets.
const (
	DashboardPath      = "/dashboard"
	ChatPath           = "/chat"
	AdminChatPath      = "/admin/chat"
	MedecinChatPath    = "/medecin/chat"
	SecretaireChatPath = "/secretaire/chat"
	RendezVousPath     = "/rendezvous"
)

// Role is the authority granted to the current user.
type Role string

const (
	RoleAdmin      Role = "ROLE_ADMIN"
	RoleMedecin    Role = "ROLE_MEDECIN"
	RoleSecretaire Role = "ROLE_SECRETAIRE"
)

// IsChatRoute reports whether path belongs to the chat. The chat surface owns
// the realtime connection on these paths and the notification surface yields it.
func IsChatRoute(path string) bool {
	return strings.Contains(path, "chat")
}

// ParseRole decodes a role stored as a JSON string (for example "\"ROLE_ADMIN\"").
// An empty value decodes to the empty role.
func ParseRole(raw string) (Role, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	var role string
	if err := json.Unmarshal([]byte(raw), &role); err != nil {
		return "", fmt.Errorf("parse role %q: %w", raw, err)
	}
	return Role(role), nil
}

// EncodeRole serializes a role the way ParseRole expects it.
func EncodeRole(role Role) string {
	data, _ := json.Marshal(string(role))
	return string(data)
}

// ChatPathForRole returns the role-specific chat page, or the generic chat page.
func ChatPathForRole(role Role) string {
	switch role {
	case RoleAdmin:
		return AdminChatPath
	case RoleMedecin:
		return MedecinChatPath
	case RoleSecretaire:
		return SecretaireChatPath
	default:
		return ChatPath
	}
}

// Destination returns where a click on a notification of type t leads.
// ok is false for types that do not navigate.
func Destination(t notification.Type, role Role) (path string, ok bool) {
	switch t {
	case notification.TypeMessage:
		return ChatPathForRole(role), true
	case notification.TypeRendezVous:
		return RendezVousPath, true
	default:
		return "", false
	}
}
