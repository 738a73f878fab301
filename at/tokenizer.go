package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings and also
// recognizes the input prompt ("> ").
//
// Important: This splitter assumes "No Echo" mode (ATE0). If echo is enabled,
// it would need modification to handle command echoes that precede the actual
// response.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match input prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case strings.HasPrefix(line, UrcRegistration),
		strings.HasPrefix(line, UrcSignalStrength),
		line == UrcCall:
		return TypeURC
	default:
		return TypeData
	}
}

// Answers reports whether line is the information response to cmd rather
// than an unsolicited notification sharing the same prefix. A query such as
// AT+CEREG? is answered by a "+CEREG:" line that would otherwise classify as
// a URC.
func Answers(cmd, line string) bool {
	name := CommandName(cmd)
	if name == "" {
		return false
	}
	return strings.HasPrefix(line, name+":")
}

// CommandName extracts the extended command name, e.g. "+CEREG" from
// "AT+CEREG?" or "AT+CGACT=1,0".
func CommandName(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if len(cmd) < 3 || !strings.EqualFold(cmd[:2], "AT") {
		return ""
	}
	name := cmd[2:]
	if name == "" || (name[0] != '+' && name[0] != '%' && name[0] != '^') {
		return ""
	}
	if i := strings.IndexAny(name, "=?"); i >= 0 {
		name = name[:i]
	}
	return name
}

// HasError reports whether a response carries an explicit error result.
func HasError(response string) bool {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == ERROR || strings.HasPrefix(line, CmeError) || strings.HasPrefix(line, CmsError) {
			return true
		}
	}
	return false
}

// HasOK reports whether a response carries the OK final result.
func HasOK(response string) bool {
	for _, line := range strings.Split(response, "\n") {
		if strings.TrimSpace(line) == OK {
			return true
		}
	}
	return false
}
