package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Claims is the token payload shared by every service. Role is "client" or
// "professional".
type Claims struct {
	Sub   string `json:"sub"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
}

var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature invalid")
)

type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
	Kid string `json:"kid,omitempty"`
}

func b64(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// SignHS256 produces a compact JWS over the claims.
func SignHS256(claims Claims, secret []byte) (string, error) {
	hdr, err := json.Marshal(header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	signingInput := b64(hdr) + "." + b64(payload)
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(signingInput))
	return signingInput + "." + b64(mac.Sum(nil)), nil
}

// ParseAndVerifyHS256 validates the signature and expiry and returns the
// claims.
func ParseAndVerifyHS256(token string, secret []byte) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrTokenMalformed
	}
	var hdr header
	if err := decodeSegment(parts[0], &hdr); err != nil {
		return Claims{}, ErrTokenMalformed
	}
	if hdr.Alg != "HS256" {
		return Claims{}, fmt.Errorf("%w: unexpected alg %q", ErrTokenMalformed, hdr.Alg)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(parts[0] + "." + parts[1]))
	want := b64(mac.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return Claims{}, ErrBadSignature
	}
	return decodeClaims(parts[1])
}

// VerifyRS256 validates a token against an RSA public key. Used when an
// external identity provider issues tokens; our own signer is HS256.
func VerifyRS256(token string, pub *rsa.PublicKey) (Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrTokenMalformed
	}
	var hdr header
	if err := decodeSegment(parts[0], &hdr); err != nil {
		return Claims{}, ErrTokenMalformed
	}
	if hdr.Alg != "RS256" {
		return Claims{}, fmt.Errorf("%w: unexpected alg %q", ErrTokenMalformed, hdr.Alg)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, ErrTokenMalformed
	}
	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return Claims{}, ErrBadSignature
	}
	return decodeClaims(parts[1])
}

// KeyID returns the kid from the token header without verifying anything.
func KeyID(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrTokenMalformed
	}
	var hdr header
	if err := decodeSegment(parts[0], &hdr); err != nil {
		return "", ErrTokenMalformed
	}
	return hdr.Kid, nil
}

func decodeClaims(segment string) (Claims, error) {
	var claims Claims
	if err := decodeSegment(segment, &claims); err != nil {
		return Claims{}, ErrTokenMalformed
	}
	if claims.Exp > 0 && time.Now().Unix() >= claims.Exp {
		return Claims{}, ErrTokenExpired
	}
	return claims, nil
}

func decodeSegment(segment string, v any) error {
	raw, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// ParseHeader extracts the bearer token from an Authorization header value.
func ParseHeader(authorization string) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", errors.New("authorization header must use Bearer scheme")
	}
	token := strings.TrimSpace(authorization[len(prefix):])
	if token == "" {
		return "", errors.New("authorization header has empty token")
	}
	return token, nil
}
