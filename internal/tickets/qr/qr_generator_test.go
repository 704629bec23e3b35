package qr

import (
	"bytes"
	"image/png"
	"testing"

	"clubster-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTicket() models.Ticket {
	return models.Ticket{
		ID:        "TABCDEFGH1",
		BookingID: "B123ABCDE0",
		UnitIndex: 0,
		Payload:   "B123ABCDE0-0-1700000000123",
	}
}

func TestTokenRoundTrip(t *testing.T) {
	gen := NewQRGenerator("test-secret-key")

	token, err := gen.EncryptToken(sampleTicket())
	require.NoError(t, err)
	assert.NotContains(t, token, "B123ABCDE0")

	decoded, err := gen.DecryptToken(token)
	require.NoError(t, err)
	assert.Equal(t, "TABCDEFGH1", decoded.TicketID)
	assert.Equal(t, "B123ABCDE0", decoded.BookingID)
	assert.Equal(t, "B123ABCDE0-0-1700000000123", decoded.Payload)
}

func TestTokensAreNotDeterministic(t *testing.T) {
	gen := NewQRGenerator("test-secret-key")

	a, err := gen.EncryptToken(sampleTicket())
	require.NoError(t, err)
	b, err := gen.EncryptToken(sampleTicket())
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptRejectsForeignTokens(t *testing.T) {
	gen := NewQRGenerator("test-secret-key")
	other := NewQRGenerator("another-secret")

	token, err := other.EncryptToken(sampleTicket())
	require.NoError(t, err)

	_, err = gen.DecryptToken(token)
	assert.Error(t, err)

	_, err = gen.DecryptToken("not base64 !!")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = gen.DecryptToken("c2hvcnQ=")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateEncryptedQRIsPNG(t *testing.T) {
	gen := NewQRGenerator("test-secret-key")

	img, err := gen.GenerateEncryptedQR(sampleTicket())
	require.NoError(t, err)
	require.NotEmpty(t, img)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Bounds().Dx())
}
