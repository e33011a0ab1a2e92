package service

import "testing"

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name     string
		head     []byte
		wantType string
		wantOK   bool
	}{
		{"pdf", []byte("%PDF-1.7 rest of file"), "application/pdf", true},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg", true},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, "image/png", true},
		{"zip", []byte{0x50, 0x4B, 0x03, 0x04, 0x14}, "application/zip", true},
		{"plain text", []byte("hello world"), "", false},
		{"empty", nil, "", false},
		{"truncated png", []byte{0x89, 0x50, 0x4E}, "", false},
		{"html", []byte("<!DOCTYPE html>"), "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotType, gotOK := DetectFormat(tc.head)
			if gotOK != tc.wantOK || gotType != tc.wantType {
				t.Fatalf("DetectFormat(%q) = (%q, %v), want (%q, %v)",
					tc.head, gotType, gotOK, tc.wantType, tc.wantOK)
			}
		})
	}
}
