package model

import (
	"math/rand/v2"
	"strconv"
)

const _passwordAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewLogin returns a random six-digit display login.
func NewLogin() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}

// NewPassword returns a random eight-character display password.
func NewPassword() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = _passwordAlphabet[rand.IntN(len(_passwordAlphabet))]
	}
	return string(b)
}
