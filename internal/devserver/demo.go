package devserver

import (
	"context"
	"time"

	"github.com/gestionclinique/clinic-intray/internal/notification"
)

type demoMessage struct {
	sender       string
	conversation string
	text         string
}

var demoMessages = []demoMessage{
	{"Dr. Martin", "Équipe médicale", "Le patient de 14h est arrivé."},
	{"Claire Dubois", "Accueil", "Pouvez-vous confirmer le rendez-vous de Mme Leroy ?"},
	{"Admin Clinique", "", "Réunion de service reportée à jeudi."},
	{"", "Urgences", "Salle 3 disponible."},
}

// SeedDemo stores a few unread notifications for every seeded user.
func (s *Server) SeedDemo() {
	for _, seed := range s.cfg.Seeds {
		rdv := int64(100 + seed.ID)
		s.store.Add(notification.Notification{
			Type:          notification.TypeRendezVous,
			Contenu:       "Nouveau rendez-vous planifié demain à 9h30",
			UtilisateurID: seed.ID,
			RendezVousID:  &rdv,
		})
		s.store.AddMessage(seed.ID, 10+seed.ID, "Dr. Martin", "Équipe médicale", "Bonjour, les résultats sont disponibles.")
		s.store.Add(notification.Notification{
			Type:          notification.Type("SYSTEME"),
			Contenu:       "Maintenance prévue ce soir",
			UtilisateurID: seed.ID,
		})
	}
}

// RunDemo pushes a chat message to every connected seeded user at each
// interval until ctx is cancelled.
func (s *Server) RunDemo(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		m := demoMessages[i%len(demoMessages)]
		i++
		for _, seed := range s.cfg.Seeds {
			if s.hub.connected(seed.ID) == 0 {
				continue
			}
			if _, _, err := s.PushMessage(seed.ID, int64(20+i%3), m.sender, m.conversation, m.text); err != nil {
				s.logger.Warn("demo push failed", "user_id", seed.ID, "error", err.Error())
			}
		}
	}
}
