// Package relay is a websocket pub/sub hub for players who cannot reach a
// NATS server. The Server fans messages out by subject; Conn is the matching
// client and implements multiplayer.Transport.
package relay

const (
	opSubscribe   = "sub"
	opUnsubscribe = "unsub"
	opPublish     = "pub"
	opMessage     = "msg"
)

// frame is one websocket text message in either direction.
type frame struct {
	Op      string `json:"op"`
	Subject string `json:"subject"`
	Data    []byte `json:"data,omitempty"`
}

// validSubject reports whether s can be used as a subject. Wildcards are not
// supported.
func validSubject(s string) bool {
	if s == "" || len(s) > 256 {
		return false
	}
	for _, r := range s {
		if r <= ' ' || r == '*' || r == '>' || r > '~' {
			return false
		}
	}
	return true
}
