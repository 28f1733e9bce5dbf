package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strconv"

	"golang.org/x/crypto/ssh"
)

// SshListener serves the console to ssh clients. Logins carry no password.
// Without an operator list any username gets in, which only suits a trusted
// network.
type SshListener struct {
	addr      string
	cm        *ConnectionManager
	hostKey   ssh.Signer
	operators []string
}

type SshOpt func(*SshListener)

// WithOperators only lets the named users open a console.
func WithOperators(names ...string) SshOpt {
	return func(l *SshListener) {
		l.operators = append(l.operators, names...)
	}
}

func NewSshListener(host string, port uint16, cm *ConnectionManager, hostKey ssh.Signer, opts ...SshOpt) *SshListener {
	l := &SshListener{
		addr:    net.JoinHostPort(host, strconv.Itoa(int(port))),
		cm:      cm,
		hostKey: hostKey,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SshListener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return listenError(l.addr, err)
	}
	slog.InfoContext(ctx, "console listening", "protocol", "ssh", "addr", ln.Addr().String())

	cfg := l.serverConfig()
	acceptLoop(ctx, ln, func(ctx context.Context, conn net.Conn) {
		l.serveConn(ctx, conn, cfg)
	})
	return nil
}

func (l *SshListener) serverConfig() *ssh.ServerConfig {
	cfg := &ssh.ServerConfig{NoClientAuth: true}
	if len(l.operators) > 0 {
		cfg.NoClientAuthCallback = func(meta ssh.ConnMetadata) (*ssh.Permissions, error) {
			if !slices.Contains(l.operators, meta.User()) {
				return nil, fmt.Errorf("%s is not a park operator", meta.User())
			}
			return &ssh.Permissions{}, nil
		}
	}
	cfg.AddHostKey(l.hostKey)
	return cfg
}

func (l *SshListener) serveConn(ctx context.Context, conn net.Conn, cfg *ssh.ServerConfig) {
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		slog.WarnContext(ctx, "ssh login refused", "remote", conn.RemoteAddr().String(), "error", err)
		return
	}
	defer sshConn.Close()

	log := slog.With("operator", sshConn.User(), "remote", conn.RemoteAddr().String())
	log.InfoContext(ctx, "operator signed in over ssh")

	// Shutdown closes the connection, which ends the channel loop.
	unwatch := context.AfterFunc(ctx, func() { sshConn.Close() })
	defer unwatch()

	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "only console sessions are offered")
			continue
		}
		l.serveSession(ctx, nc, log)
	}
}

func (l *SshListener) serveSession(ctx context.Context, nc ssh.NewChannel, log *slog.Logger) {
	ch, reqs, err := nc.Accept()
	if err != nil {
		log.WarnContext(ctx, "opening ssh session", "error", err)
		return
	}
	defer ch.Close()

	// Clients hold their input until the shell request is answered.
	select {
	case ok := <-answerRequests(reqs):
		if !ok {
			return
		}
	case <-ctx.Done():
		return
	}

	l.cm.AcceptConnection(ctx, newCRLFReadWriter(ch))
}

// answerRequests grants the shell request and refuses everything else. A
// refused pty leaves echo and line editing with the client. The returned
// channel reports whether a shell was asked for before reqs closed.
func answerRequests(reqs <-chan *ssh.Request) <-chan bool {
	shell := make(chan bool, 1)
	go func() {
		asked := false
		for req := range reqs {
			ok := req.Type == "shell"
			if req.WantReply {
				req.Reply(ok, nil)
			}
			if ok && !asked {
				asked = true
				shell <- true
			}
		}
		if !asked {
			shell <- false
		}
	}()
	return shell
}
