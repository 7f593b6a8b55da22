package at

import "strings"

const (
	// Terminal Control
	Prefix = "AT"
	CR     = "\r"

	// Status Codes
	// A successful command ends with the "00" status followed by CR. An
	// error arrives as the "01" status framed by a leading newline and a
	// trailing tab, with the error code text after the tab.
	SuccessTerminator = "00\r"
	ErrorPrefix       = "\n01\t"

	// RunIgnored is the literal a module emits immediately after +RUN when
	// it has nothing to say. It is neither program output nor an error and
	// the run response scan swallows it.
	RunIgnored = "\n00"
)

// Frame builds the wire form of a command from its tail: "AT", a single
// space unless the tail already carries the "+" command marker, the tail
// itself and a carriage return. An empty tail frames as "AT \r", which the
// module answers like any other command and which is used as a liveness
// probe.
func Frame(tail string) []byte {
	sep := " "
	if strings.HasPrefix(tail, "+") {
		sep = ""
	}
	return []byte(Prefix + sep + tail + CR)
}
