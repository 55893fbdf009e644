package utils

import "crypto/rand"

// inviteAlphabet is the digit-plus-uppercase set invite codes are drawn
// from.  Six characters keeps the code short enough to read across a
// table while leaving collisions among concurrently-open sessions
// vanishingly rare; the store's uniqueness constraint is the backstop.
const inviteAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const inviteLength = 6

// NewInviteCode returns a random shareable session code like "7QX2FA".
func NewInviteCode() string {
	buf := make([]byte, inviteLength)
	// rand.Read never fails on supported platforms; fall back to the
	// first alphabet rune per byte if it somehow does.
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = inviteAlphabet[int(b)%len(inviteAlphabet)]
	}
	return string(buf)
}
