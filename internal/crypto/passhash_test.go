package crypto

import (
	"strings"
	"testing"
)

func TestHashSecret_ProducesDistinctDigests(t *testing.T) {
	t.Parallel()

	d1, err := HashSecret("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	d2, err := HashSecret("p@ssw0rd")
	if err != nil {
		t.Fatalf("HashSecret(2): %v", err)
	}

	if d1 == d2 {
		t.Fatalf("two digests of the same secret are equal, salt looks non-random")
	}
	if !strings.Contains(d1, "$") {
		t.Fatalf("digest %q missing salt separator", d1)
	}
	if strings.Contains(d1, "p@ssw0rd") {
		t.Fatalf("digest leaks plaintext")
	}
}

func TestVerifySecret(t *testing.T) {
	t.Parallel()

	digest, err := HashSecret("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	if !VerifySecret("correct horse battery staple", digest) {
		t.Fatalf("VerifySecret: expected true for correct secret")
	}
	if VerifySecret("wrong", digest) {
		t.Fatalf("VerifySecret: expected false for wrong secret")
	}
	if VerifySecret("", digest) {
		t.Fatalf("VerifySecret: expected false for empty secret")
	}
}

func TestVerifySecret_MalformedDigest(t *testing.T) {
	t.Parallel()

	for _, encoded := range []string{
		"",
		"no-separator",
		"$",
		"!!notbase64!!$AAAA",
		"AAAA$!!notbase64!!",
	} {
		if VerifySecret("anything", encoded) {
			t.Fatalf("VerifySecret accepted malformed digest %q", encoded)
		}
	}
}
