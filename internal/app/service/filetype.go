package service

import "bytes"

// fileSignature ties a leading-byte pattern to the content type it proves.
type fileSignature struct {
	prefix      []byte
	contentType string
}

// Allowed upload formats. Validation trusts these leading bytes, never the
// filename extension or the client-declared MIME type: a text file renamed
// to .pdf must still be rejected.
var allowedSignatures = []fileSignature{
	{prefix: []byte("%PDF"), contentType: "application/pdf"},
	{prefix: []byte{0xFF, 0xD8, 0xFF}, contentType: "image/jpeg"},
	{prefix: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, contentType: "image/png"},
	// ZIP container, covers OOXML document archives (docx etc.).
	{prefix: []byte{0x50, 0x4B, 0x03, 0x04}, contentType: "application/zip"},
}

// DetectFormat matches the payload's leading bytes against the allow-list and
// returns the proven content type. ok is false when no signature matches.
func DetectFormat(head []byte) (contentType string, ok bool) {
	for _, sig := range allowedSignatures {
		if bytes.HasPrefix(head, sig.prefix) {
			return sig.contentType, true
		}
	}
	return "", false
}
