package hub

import (
	"crypto/rand"
	"math/big"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength  = 6
)

func GenerateCode() (string, error) {
	code := make([]byte, CodeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode makes user-typed codes comparable: "ab12cd " and "AB12CD"
// name the same room.
func NormalizeCode(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}
