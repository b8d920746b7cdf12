// Package codegen draws the short identifiers handed out to people: classroom join codes and stream keys.
package codegen

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// ClassCodeLength is the number of characters in a classroom join code.
	ClassCodeLength = 6
	classAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	streamKeyBytes  = 16
)

// ErrExhausted is returned when every attempt produced a code already in use.
var ErrExhausted = errors.New("codegen: unique code attempts exhausted")

// ClassCode returns a random six character code drawn uniformly from A-Z0-9.
func ClassCode() (string, error) {
	max := big.NewInt(int64(len(classAlphabet)))
	buf := make([]byte, ClassCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw class code: %w", err)
		}
		buf[i] = classAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// StreamKey returns an uppercase key built from 16 random bytes, URL-safe encoded with dashes removed.
func StreamKey() (string, error) {
	raw := make([]byte, streamKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("draw stream key: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)
	return strings.ToUpper(strings.ReplaceAll(encoded, "-", "")), nil
}

// NormalizeClassCode trims and uppercases user supplied codes.
func NormalizeClassCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsClassCode reports whether code has the shape of a join code.
func IsClassCode(code string) bool {
	if len(code) != ClassCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(classAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// ExistsFunc reports whether a candidate code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// UniqueClassCode draws codes until exists reports a free one or attempts run out.
func UniqueClassCode(ctx context.Context, attempts int, exists ExistsFunc) (string, error) {
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := ClassCode()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrExhausted
}
