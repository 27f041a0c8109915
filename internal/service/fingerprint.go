package service

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

const unknown = "unknown"

// Fingerprint is the pseudo-identity of an anonymous caller. It is derived
// from spoofable headers and is only good enough for soft abuse limits.
type Fingerprint struct {
	IP          string
	UserAgent   string
	Fingerprint string
}

// DeriveFingerprint computes the caller fingerprint from the proxy headers
// and User-Agent of r. The IP is the first X-Forwarded-For entry, then
// X-Real-IP, then "unknown".
func DeriveFingerprint(r *http.Request) Fingerprint {
	ip := unknown
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			ip = first
		}
	} else if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		ip = realIP
	}

	ua := r.Header.Get("User-Agent")
	if ua == "" {
		ua = unknown
	}

	return Fingerprint{
		IP:          ip,
		UserAgent:   ua,
		Fingerprint: sha256Hex(ip + "|" + ua),
	}
}

func sha256Hex(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
