package auth

import (
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"bannedemails/internal/domain"
)

const nonceLength = 20

// blake2bNonces issues anti-forgery tokens as keyed BLAKE2b digests of a
// time tick, the action and the user ID. A tick is half the lifetime, so a
// token stays valid for between half and the whole lifetime.
type blake2bNonces struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewNonceManager returns a NonceManager keyed by secret whose tokens expire
// after lifetime.
func NewNonceManager(secret string, lifetime time.Duration) domain.NonceManager {
	return newNonceManager(secret, lifetime, time.Now)
}

func newNonceManager(secret string, lifetime time.Duration, now func() time.Time) *blake2bNonces {
	key := blake2b.Sum256([]byte(secret))
	if lifetime < 2*time.Second {
		lifetime = 2 * time.Second
	}
	return &blake2bNonces{key: key[:], lifetime: lifetime, now: now}
}

func (n *blake2bNonces) tick() int64 {
	half := int64(n.lifetime / 2 / time.Second)
	t := n.now().Unix()
	return (t + half - 1) / half
}

func (n *blake2bNonces) digest(tick int64, action, userID string) string {
	h, err := blake2b.New256(n.key)
	if err != nil {
		// Only returned for keys longer than 64 bytes; key is always 32.
		panic(err)
	}
	h.Write([]byte(strconv.FormatInt(tick, 10)))
	h.Write([]byte{0})
	h.Write([]byte(action))
	h.Write([]byte{0})
	h.Write([]byte(userID))
	return hex.EncodeToString(h.Sum(nil))[:nonceLength]
}

func (n *blake2bNonces) Create(action, userID string) string {
	return n.digest(n.tick(), action, userID)
}

func (n *blake2bNonces) Verify(nonce, action, userID string) bool {
	if len(nonce) != nonceLength {
		return false
	}
	tick := n.tick()
	for _, t := range []int64{tick, tick - 1} {
		if subtle.ConstantTimeCompare([]byte(nonce), []byte(n.digest(t, action, userID))) == 1 {
			return true
		}
	}
	return false
}
