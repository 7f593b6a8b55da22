package at

import (
	"bytes"
	"strings"
)

// Outcome identifies the nature of a module response.
type Outcome int

const (
	// Success: the buffer ends with the success terminator.
	Success Outcome = iota
	// DeviceError: the module rejected the command and reported a code.
	DeviceError
	// NoResponse: nothing arrived before the read deadline. The module is
	// absent or not in interactive mode.
	NoResponse
	// Malformed: bytes arrived but fit no recognized shape.
	Malformed
)

// Response is the classified result of one command exchange.
type Response struct {
	Outcome Outcome
	// Payload is the response text minus its terminator, surrounding
	// whitespace trimmed. Set for Success only.
	Payload string
	// Code is the error code text reported by the module. Set for
	// DeviceError only.
	Code string
	// Raw is the accumulated response bytes, kept for diagnostics.
	Raw []byte
}

// Classify interprets the bytes accumulated since a command was sent.
//
// The rules, in order:
//   - ends with the success terminator: Success, payload trimmed
//   - empty buffer: NoResponse
//   - longer than 4 bytes and begins with the error prefix: DeviceError,
//     code is the text between the prefix and the final byte
//   - anything else: Malformed
func Classify(raw []byte) Response {
	if bytes.HasSuffix(raw, []byte(SuccessTerminator)) {
		body := raw[:len(raw)-len(SuccessTerminator)]
		return Response{
			Outcome: Success,
			Payload: strings.TrimSpace(string(body)),
			Raw:     raw,
		}
	}
	if len(raw) == 0 {
		return Response{Outcome: NoResponse}
	}
	if len(raw) > 4 && bytes.HasPrefix(raw, []byte(ErrorPrefix)) {
		return Response{
			Outcome: DeviceError,
			Code:    string(raw[len(ErrorPrefix) : len(raw)-1]),
			Raw:     raw,
		}
	}
	return Response{Outcome: Malformed, Raw: raw}
}
