package mailbox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gmail "google.golang.org/api/gmail/v1"
)

func TestDecodeBodyPaddedAndRaw(t *testing.T) {
	content := "<html>voucher</html>"
	assert.Equal(t, content, decodeBody(base64.URLEncoding.EncodeToString([]byte(content))))
	assert.Equal(t, content, decodeBody(base64.RawURLEncoding.EncodeToString([]byte(content))))
	assert.Empty(t, decodeBody("!!not base64!!"))
}

func TestConvertPartTree(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("plain"))},
			},
			{
				MimeType: "text/html",
				Body:     &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte("<p>rich</p>"))},
			},
		},
	}

	body := convertPart(payload)
	require.NotNil(t, body)
	assert.Equal(t, "multipart/alternative", body.MimeType)
	require.Len(t, body.Parts, 2)
	assert.Equal(t, "plain", body.Parts[0].Data)
	assert.Equal(t, "<p>rich</p>", body.Parts[1].Data)
}

func TestConvertPartNil(t *testing.T) {
	assert.Nil(t, convertPart(nil))
}
