package registration

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/simensrostad/mailpal/at"
)

// Parse extracts the registration status from a +CEREG query reply
// ("+CEREG: <n>,<stat>[,...]") or notification ("+CEREG: <stat>[,...]").
//
// The second field is taken as <stat> when it is numeric; otherwise the
// first field is. Location fields after <stat> are ignored. It returns false
// when the marker is missing, the field is not an 8-bit number or resp is
// not valid UTF-8.
func Parse(resp []byte) (Status, bool) {
	if !utf8.Valid(resp) {
		return Unknown, false
	}
	text := string(resp)

	i := strings.Index(text, at.UrcRegistration)
	if i < 0 {
		return Unknown, false
	}
	rest := text[i+len(at.UrcRegistration):]
	if j := strings.IndexAny(rest, "\r\n"); j >= 0 {
		rest = rest[:j]
	}

	fields := strings.Split(strings.TrimLeft(rest, " \t"), ",")
	field := fields[0]
	if len(fields) > 1 && startsWithDigit(fields[1]) {
		field = fields[1]
	}

	digits := strings.TrimLeft(field, " \t")
	end := 0
	for end < len(digits) && isDigit(digits[end]) {
		end++
	}
	code, err := strconv.ParseUint(digits[:end], 10, 8)
	if err != nil {
		return Unknown, false
	}
	return StatusFromCode(uint8(code)), true
}

func startsWithDigit(s string) bool {
	s = strings.TrimLeft(s, " \t")
	return s != "" && isDigit(s[0])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
