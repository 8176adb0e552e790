package registration

import (
	"encoding/json"
	"fmt"
	"strings"

	"regportal/internal/model"
)

const RegIDPrefix = "REG-"

// Ticket is the payload encoded into a registration's QR code.
type Ticket struct {
	RegID  string `json:"regId"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

// FormatRegID renders n as REG-0001. Four digits is a minimum width.
func FormatRegID(n int64) string {
	return fmt.Sprintf("%s%04d", RegIDPrefix, n)
}

func ticketPayload(reg *model.Registration) (string, error) {
	b, err := json.Marshal(Ticket{RegID: reg.RegID, Name: reg.Name, Mobile: reg.Mobile})
	if err != nil {
		return "", fmt.Errorf("failed to encode ticket: %w", err)
	}
	return string(b), nil
}

// ParseScan extracts a registration id from scanned QR text. A JSON ticket
// wins; anything that is not JSON is accepted only as a literal REG- id.
func ParseScan(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrUnrecognizedScan
	}

	var t Ticket
	if err := json.Unmarshal([]byte(raw), &t); err == nil {
		regID := strings.TrimSpace(t.RegID)
		if regID == "" {
			return "", ErrUnrecognizedScan
		}
		return regID, nil
	}

	if strings.HasPrefix(raw, RegIDPrefix) {
		return raw, nil
	}
	return "", ErrUnrecognizedScan
}
