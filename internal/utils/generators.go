package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	BookingIDPrefix = "B"
	TicketIDPrefix  = "T"

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 9
)

// GenerateBookingID returns "B" followed by 9 random characters from [A-Z0-9].
func GenerateBookingID() string {
	return prefixedCode(BookingIDPrefix)
}

// GenerateTicketID returns "T" followed by 9 random characters from [A-Z0-9].
func GenerateTicketID() string {
	return prefixedCode(TicketIDPrefix)
}

// FallbackBookingID derives a booking id from a timestamp for bookings that
// are synthesized by the webhook. It keeps the B + 9 [A-Z0-9] shape.
func FallbackBookingID(t time.Time) string {
	code := strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
	if len(code) > codeLength {
		code = code[len(code)-codeLength:]
	}
	return BookingIDPrefix + strings.Repeat("0", codeLength-len(code)) + code
}

// TicketPayload is the scannable string printed on a ticket.
func TicketPayload(bookingID string, unitIndex int, issuedAt time.Time) string {
	return fmt.Sprintf("%s-%d-%d", bookingID, unitIndex, EpochMillis(issuedAt))
}

func prefixedCode(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + codeLength)
	b.WriteString(prefix)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(fmt.Sprintf("utils: reading random bytes: %v", err))
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String()
}
