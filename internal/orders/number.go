package orders

import (
	"crypto/rand"
	"time"
)

const numberAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewOrderNumber returns YYMMDD-XXXXX. Collisions are possible and handled at insert time.
func NewOrderNumber(now time.Time) string {
	var buf [5]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	out := make([]byte, 0, 12)
	out = append(out, now.Format("060102")...)
	out = append(out, '-')
	for _, b := range buf {
		out = append(out, numberAlphabet[int(b)%len(numberAlphabet)])
	}
	return string(out)
}
