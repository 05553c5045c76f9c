package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errNoIssuedAt = errors.New("token has no iat claim")

var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Claims decodes the payload segment of a three-part token without verifying
// its signature or header.
func Claims(token string) (jwt.MapClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("token has %d segments, want 3", len(parts))
	}

	raw, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode token payload: %w", err)
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, fmt.Errorf("parse token payload: %w", err)
	}
	return claims, nil
}

// decodeSegment accepts the url-safe alphabet first and falls back to the
// standard one, padded or not.
func decodeSegment(seg string) ([]byte, error) {
	raw, err := segmentParser.DecodeSegment(seg)
	if err == nil {
		return raw, nil
	}
	if out, stdErr := base64.StdEncoding.DecodeString(padSegment(seg)); stdErr == nil {
		return out, nil
	}
	if out, rawErr := base64.RawStdEncoding.DecodeString(seg); rawErr == nil {
		return out, nil
	}
	return nil, err
}

func padSegment(seg string) string {
	if n := len(seg) % 4; n != 0 {
		return seg + strings.Repeat("=", 4-n)
	}
	return seg
}

// IssuedAt returns the iat claim of token. Zero is a valid issuance time.
func IssuedAt(token string) (time.Time, error) {
	claims, err := Claims(token)
	if err != nil {
		return time.Time{}, err
	}
	v, ok := claims["iat"]
	if !ok || v == nil {
		return time.Time{}, errNoIssuedAt
	}

	var secs float64
	switch n := v.(type) {
	case float64:
		secs = n
	case json.Number:
		if secs, err = n.Float64(); err != nil {
			return time.Time{}, fmt.Errorf("read iat claim: %w", err)
		}
	default:
		return time.Time{}, fmt.Errorf("read iat claim: not numeric (%T)", v)
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, fmt.Errorf("read iat claim: %v is not a time", secs)
	}

	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)), nil
}
