package notification

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisplayableTypes(t *testing.T) {
	assert.True(t, TypeMessage.Displayable())
	assert.True(t, TypeRendezVous.Displayable())
	assert.False(t, Type("FACTURE").Displayable())
	assert.False(t, Type("").Displayable())
}

func TestFilterDisplayableKeepsOrder(t *testing.T) {
	in := []Notification{
		{ID: 1, Type: TypeMessage},
		{ID: 2, Type: "OTHER"},
		{ID: 3, Type: TypeRendezVous},
		{ID: 4, Type: TypeMessage},
	}

	out := FilterDisplayable(in)

	require.Len(t, out, 3)
	assert.Equal(t, []int64{1, 3, 4}, []int64{out[0].ID, out[1].ID, out[2].ID})
}

func TestNotificationDecodesBackendPayload(t *testing.T) {
	payload := `{"id":12,"type":"RENDEZVOUS","contenu":"Nouveau rendez-vous prévu le 2026-03-01 à 10:00","lu":false,
		"dateCreation":"2026-02-27T08:15:00","utilisateurId":3,"messageId":null,"rendezVousId":44}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(payload), &n))

	assert.Equal(t, int64(12), n.ID)
	assert.Equal(t, TypeRendezVous, n.Type)
	assert.Nil(t, n.MessageID)
	require.NotNil(t, n.RendezVousID)
	assert.Equal(t, int64(44), *n.RendezVousID)
	assert.Equal(t, "n-12", n.Key())
	assert.Equal(t, n.Contenu, n.Preview())
}

func TestDecodeFrame(t *testing.T) {
	data := []byte(`{"type":"NEW_MESSAGE","message":{"id":9,"conversationId":4,"contenu":"Bonjour","expediteur":{"nom":"Dr Diallo"}}}`)

	f, err := DecodeFrame(data)

	require.NoError(t, err)
	assert.True(t, f.IsNewMessage())
	assert.Equal(t, int64(4), f.Message.ConversationID)
	assert.Equal(t, "Dr Diallo", f.Message.SenderName())
	assert.JSONEq(t, string(data), string(f.Raw))
}

func TestFrameWithoutMessageIsNotNewMessage(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"NEW_MESSAGE"}`))
	require.NoError(t, err)
	assert.False(t, f.IsNewMessage())

	f, err = DecodeFrame([]byte(`{"type":"TYPING","message":{"id":1}}`))
	require.NoError(t, err)
	assert.False(t, f.IsNewMessage())

	var m *Message
	assert.Empty(t, m.SenderName())
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, err := DecodeFrame([]byte("not json"))
	assert.Error(t, err)
}
