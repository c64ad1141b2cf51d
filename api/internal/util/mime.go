// Package util holds the helpers for uploaded videos: decoding, MIME detection and
// content hashing.
package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// DefaultVideoMIME is assumed when nothing better is known.
const DefaultVideoMIME = "video/mp4"

// SniffVideoMIME recognises the common phone/camera containers by magic bytes.
func SniffVideoMIME(b []byte) string {
	// ISO BMFF: ....ftyp<brand>
	if len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")) {
		if bytes.HasPrefix(b[8:], []byte("qt  ")) {
			return "video/quicktime"
		}
		if bytes.HasPrefix(b[8:], []byte("3g")) {
			return "video/3gpp"
		}
		return "video/mp4"
	}
	// Matroska / WebM: EBML header
	if len(b) >= 4 && b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3 {
		return "video/webm"
	}
	// AVI: RIFF....AVI
	if len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:11], []byte("AVI")) {
		return "video/x-msvideo"
	}
	return ""
}

// ErrVideoTooLarge is returned before decoding when the payload cannot fit the limit.
var ErrVideoTooLarge = errors.New("video too large")

// Upload is a decoded videoFile field.
type Upload struct {
	Data []byte
	// MIME is the type declared by a data: URI prefix, if any.
	MIME string
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding,
}

// DecodeVideoUpload decodes a base64 payload or a data: URI. Line breaks inside the
// payload are ignored. With maxBytes > 0 an oversized payload is rejected from its
// length alone, before anything is allocated for it.
func DecodeVideoUpload(s string, maxBytes int64) (Upload, error) {
	var up Upload
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return Upload{}, errors.New("data URI has no payload")
		}
		up.MIME, _, _ = strings.Cut(meta, ";")
		up.MIME = strings.TrimSpace(up.MIME)
		s = payload
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return Upload{}, errors.New("empty video payload")
	}
	if maxBytes > 0 {
		n := base64.RawStdEncoding.DecodedLen(len(strings.TrimRight(s, "=")))
		if int64(n) > maxBytes {
			return Upload{}, fmt.Errorf("%w: %d bytes, limit %d", ErrVideoTooLarge, n, maxBytes)
		}
	}

	var firstErr error
	for _, enc := range base64Encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			up.Data = b
			return up, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Upload{}, fmt.Errorf("decode base64: %w", firstErr)
}

// PickMIME takes the explicit MIME, then the data: URI hint, then sniffs the bytes.
func PickMIME(explicit, hint string, data []byte) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if m := SniffVideoMIME(data); m != "" {
		return m
	}
	if len(data) > 0 {
		if m := http.DetectContentType(data); strings.HasPrefix(m, "video/") {
			return m
		}
	}
	return DefaultVideoMIME
}

// SHA256Hex hashes the concatenation of parts.
func SHA256Hex(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
