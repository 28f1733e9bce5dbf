package relay

import "time"

type ServerOpt func(*Server)

// WithAddr sets the address Start listens on.
func WithAddr(addr string) ServerOpt {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithPath sets the HTTP path that upgrades to a websocket.
func WithPath(path string) ServerOpt {
	return func(s *Server) {
		s.path = path
	}
}

// WithSendBuffer sets how many outbound messages may queue per client before
// the client is dropped as too slow.
func WithSendBuffer(n int) ServerOpt {
	return func(s *Server) {
		s.sendBuffer = n
	}
}

// WithMaxMessage bounds the size of a single inbound frame.
func WithMaxMessage(bytes int64) ServerOpt {
	return func(s *Server) {
		s.maxMessage = bytes
	}
}

// WithPingInterval sets how often idle clients are pinged.
func WithPingInterval(d time.Duration) ServerOpt {
	return func(s *Server) {
		s.pingInterval = d
	}
}
