package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// signature is the uppercase hex MD5 of the parts joined with no delimiter.
func signature(parts ...string) string {
	h := md5.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

func signaturesEqual(expected, received string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}
