package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"clubster-booking/internal/models"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidToken = errors.New("invalid ticket token")

// TicketToken is the content encrypted into a ticket's QR code. Scanners send
// it back and the ticket is validated by looking the row up.
type TicketToken struct {
	TicketID  string `json:"tid"`
	BookingID string `json:"bid"`
	Payload   string `json:"p"`
}

type QRGenerator struct {
	secret []byte
}

func NewQRGenerator(secret string) *QRGenerator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRGenerator{secret: hashed[:]}
}

// EncryptToken returns the opaque, URL-safe token for a ticket.
func (q *QRGenerator) EncryptToken(ticket models.Ticket) (string, error) {
	data, err := json.Marshal(TicketToken{
		TicketID:  ticket.ID,
		BookingID: ticket.BookingID,
		Payload:   ticket.Payload,
	})
	if err != nil {
		return "", err
	}
	return encryptAES(data, q.secret)
}

// GenerateEncryptedQR renders the ticket's token as a 256px PNG.
func (q *QRGenerator) GenerateEncryptedQR(ticket models.Ticket) ([]byte, error) {
	token, err := q.EncryptToken(ticket)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(token, qrcode.Medium, 256)
}

// DecryptToken reverses EncryptToken.
func (q *QRGenerator) DecryptToken(token string) (*TicketToken, error) {
	data, err := decryptAES(token, q.secret)
	if err != nil {
		return nil, err
	}
	var t TicketToken
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.TicketID == "" || t.Payload == "" {
		return nil, ErrInvalidToken
	}
	return &t, nil
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

func decryptAES(token string, key []byte) ([]byte, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(ciphertext) <= aes.BlockSize {
		return nil, ErrInvalidToken
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	plaintext := make([]byte, len(ciphertext)-aes.BlockSize)
	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(plaintext, ciphertext[aes.BlockSize:])

	return plaintext, nil
}
