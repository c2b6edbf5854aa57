package utils

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

const invoiceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewInvoiceNumber generates a human-readable booking invoice id of the form
// SE-<base36 timestamp>-<4 random chars>.
func NewInvoiceNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return "SE-" + ts + "-" + randomUpper(4)
}

// NewSlug appends a short random suffix to a URL-safe version of name.
func NewSlug(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, name)
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "property"
	}
	return cleaned + "-" + strings.ToLower(randomUpper(6))
}

func randomUpper(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strings.Repeat("0", n)
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = invoiceAlphabet[int(v)%len(invoiceAlphabet)]
	}
	return string(out)
}
