package threat

import "strings"

const (
	portMarker     = "Port:"
	protocolMarker = "protocol': '"
)

// ExtractPort pulls the token after "Port:" out of a free-text description.
func ExtractPort(description string) (string, bool) {
	_, rest, ok := strings.Cut(description, portMarker)
	if !ok {
		return "", false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// ExtractProtocol pulls the quoted value after "protocol': '" out of a
// free-text description, e.g. "{'protocol': 'tcp'}".
func ExtractProtocol(description string) (string, bool) {
	_, rest, ok := strings.Cut(description, protocolMarker)
	if !ok {
		return "", false
	}
	proto, _, _ := strings.Cut(rest, "'")
	if proto == "" {
		return "", false
	}
	return proto, true
}
