package extract

import (
	"bytes"
	"fmt"

	"foldsweep/internal/services"
)

// PayloadMarker opens the embedded result array.
const PayloadMarker = `[{"query"`

// ErrMarkerNotFound is returned when a page carries no embedded payload.
var ErrMarkerNotFound = fmt.Errorf("%w: payload marker not found", services.ErrValidation)

var terminators = [][]byte{
	[]byte("</div>"),
	[]byte("</body>"),
	[]byte("</html>"),
}

// Locate returns the embedded payload of a result page: everything from the
// marker on, with trailing markup lines removed.
func Locate(content []byte) ([]byte, error) {
	start := bytes.Index(content, []byte(PayloadMarker))
	if start < 0 {
		return nil, ErrMarkerNotFound
	}
	payload := bytes.TrimSpace(content[start:])
	for {
		cut := bytes.LastIndexByte(payload, '\n')
		last := bytes.TrimSpace(payload[cut+1:])
		if !isTerminator(last) {
			break
		}
		if cut < 0 {
			// The marker line itself is never a terminator.
			break
		}
		payload = bytes.TrimSpace(payload[:cut])
	}
	return payload, nil
}

func isTerminator(line []byte) bool {
	for _, t := range terminators {
		if bytes.EqualFold(line, t) {
			return true
		}
	}
	return false
}
