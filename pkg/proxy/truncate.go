package proxy

import (
	"fmt"
	"unicode/utf8"
)

// truncateWithTrailer implements the §3 truncation rule: when text's UTF-8
// byte length exceeds capBytes, keep the longest valid UTF-8 prefix whose
// byte length is <= capBytes and append the exact trailer format. capBytes
// < 0 means no cap. capBytes == 0 yields an empty prefix plus the trailer
// (this is how an operator disables body storage via max_stored_body_bytes).
func truncateWithTrailer(text string, capBytes int) string {
	if capBytes < 0 || len(text) <= capBytes {
		return text
	}

	kept := capBytes
	for kept > 0 && !utf8.RuneStart(text[kept]) {
		kept--
	}

	prefix := text[:kept]
	return prefix + fmt.Sprintf("\n[TRUNCATED: original size was %d bytes, stored first %d bytes]", len(text), kept)
}
