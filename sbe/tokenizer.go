package sbe

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter tokenizes the SBE41 byte stream. It uses the signature of
// bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// Lines end in CR, LF or CRLF; the terminator is dropped. A bare command
// prompt ("S>") is returned as its own token because the instrument does
// not terminate it.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match command prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match a line ending with CR, LF or CRLF
	if i := bytes.IndexAny(data, CRLF); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[0:i], nil
				}
				return i + 1, data[0:i], nil
			}
			// CR is the last byte; wait to see whether LF follows.
			if !atEOF {
				return 0, nil, nil
			}
		}
		return i + 1, data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// commandWords are the leading words of every command the driver sends;
// the instrument echoes them back in command mode.
var commandWords = []string{
	"ds", "dc", "qs", "pumpfastpt=", "dsreplyformat=", "outputdensity=",
	"addtimingdelays=", "oxnf=", "oxns=",
}

// Classify identifies the nature of a line received from the instrument.
func Classify(line string) ResponseType {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, Prompt) {
		return TypePrompt
	}
	for _, w := range commandWords {
		if trimmed == w || (strings.HasSuffix(w, "=") && strings.HasPrefix(trimmed, w)) {
			return TypeEcho
		}
	}
	return TypeData
}
