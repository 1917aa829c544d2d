// Package filetype identifies uploaded media by its leading magic bytes
// instead of trusting the client-supplied extension or MIME header.
package filetype

import (
	"bytes"
	"strings"
)

// Type is a detected file format.
type Type string

const (
	None Type = "none"
	MP3  Type = "mp3"
	M4R  Type = "m4r"
	OGG  Type = "ogg"
	WAV  Type = "wav"
	JPG  Type = "jpg"
	PNG  Type = "png"
	GIF  Type = "gif"
	WebP Type = "webp"
)

// HeaderSize is the number of leading bytes Detect needs to recognise every type.
const HeaderSize = 12

var (
	// AudioTypes are the formats accepted for ringtone files.
	AudioTypes = []Type{MP3, M4R, OGG, WAV}
	// ImageTypes are the formats accepted for thumbnails.
	ImageTypes = []Type{JPG, PNG, GIF, WebP}
)

var mimeTypes = map[Type]string{
	MP3:  "audio/mpeg",
	M4R:  "audio/mp4",
	OGG:  "audio/ogg",
	WAV:  "audio/wav",
	JPG:  "image/jpeg",
	PNG:  "image/png",
	GIF:  "image/gif",
	WebP: "image/webp",
}

// Extension returns the canonical file extension without the dot.
func (t Type) Extension() string {
	if t == None {
		return ""
	}

	return string(t)
}

// MIMEType returns the content type served for t, or application/octet-stream.
func (t Type) MIMEType() string {
	if m, ok := mimeTypes[t]; ok {
		return m
	}

	return "application/octet-stream"
}

// ParseType maps a file extension (with or without the dot, any case) to a Type.
// jpeg and m4a are accepted as aliases of jpg and m4r.
func ParseType(ext string) (Type, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	switch ext {
	case "jpeg":
		return JPG, true
	case "m4a":
		return M4R, true
	}

	t := Type(ext)
	if _, ok := mimeTypes[t]; ok {
		return t, true
	}

	return None, false
}

// Result is the outcome of Detect.
type Result struct {
	Valid bool
	Type  Type
}

type signature struct {
	typ   Type
	match func(b []byte) bool
}

// Checked in order; the first match wins. Every RIFF container is claimed by
// the RIFF entry, which tells WebP apart from WAV by the form type at 8..11.
// RIFF with WEBP at offset 8 is webp even though WAV sits earlier in the
// table; any other RIFF stays wav.
var signatures = []signature{
	{MP3, isMP3},
	{M4R, func(b []byte) bool { return len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp")) }},
	{OGG, prefix([]byte("OggS"))},
	{WAV, isRIFF},
	{JPG, prefix([]byte{0xFF, 0xD8, 0xFF})},
	{PNG, prefix([]byte{0x89, 0x50, 0x4E, 0x47})},
	{GIF, prefix([]byte("GIF"))},
}

// Detect identifies data by its magic bytes. The result is valid only when
// a signature matched and its type is one of accepted.
func Detect(data []byte, accepted ...Type) Result {
	t := identify(data)
	if t == None {
		return Result{Type: None}
	}

	for _, a := range accepted {
		if a == t {
			return Result{Valid: true, Type: t}
		}
	}

	return Result{Type: t}
}

func identify(b []byte) Type {
	for _, sig := range signatures {
		if !sig.match(b) {
			continue
		}

		if sig.typ == WAV && isWebP(b) {
			return WebP
		}

		return sig.typ
	}

	return None
}

func prefix(p []byte) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, p) }
}

// isMP3 matches an ID3v2 tag or an MPEG frame sync (11 set bits).
func isMP3(b []byte) bool {
	if bytes.HasPrefix(b, []byte("ID3")) {
		return true
	}

	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}

func isRIFF(b []byte) bool {
	return bytes.HasPrefix(b, []byte("RIFF"))
}

func isWebP(b []byte) bool {
	return len(b) >= 12 && bytes.Equal(b[8:12], []byte("WEBP"))
}
