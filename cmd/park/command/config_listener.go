package command

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-park/internal/listener"
	"github.com/pixil98/go-service"
	"golang.org/x/crypto/ssh"
)

type ListenerType int

const (
	ListenerTypeTelnet ListenerType = iota
	ListenerTypeSSH
)

var listenerTypes = map[string]ListenerType{
	"telnet": ListenerTypeTelnet,
	"ssh":    ListenerTypeSSH,
}

func (lt *ListenerType) UnmarshalText(text []byte) error {
	t, ok := listenerTypes[string(text)]
	if !ok {
		return fmt.Errorf("unknown listener type: %s", text)
	}
	*lt = t
	return nil
}

// ListenerConfig opens the operator console on a port. HostKeyPath and
// Operators only apply to ssh. A HostKeyPath that does not exist yet is
// filled with a fresh key so the fingerprint survives restarts.
type ListenerConfig struct {
	Protocol    ListenerType `json:"protocol"`
	Host        string       `json:"host"`
	Port        uint16       `json:"port"`
	HostKeyPath string       `json:"host_key_path,omitempty"`
	Operators   []string     `json:"operators,omitempty"`
}

func (cl *ListenerConfig) validate() error {
	el := errors.NewErrorList()

	if cl.Port == 0 {
		el.Add(fmt.Errorf("port must be set to a positive integer"))
	}
	if cl.Protocol != ListenerTypeSSH {
		if cl.HostKeyPath != "" {
			el.Add(fmt.Errorf("host_key_path only applies to ssh listeners"))
		}
		if len(cl.Operators) > 0 {
			el.Add(fmt.Errorf("operators only applies to ssh listeners"))
		}
	}
	for i, name := range cl.Operators {
		if name == "" {
			el.Add(fmt.Errorf("operator %d has no name", i))
		}
	}

	return el.Err()
}

func (cl *ListenerConfig) BuildListener(cm *listener.ConnectionManager) (service.Worker, error) {
	switch cl.Protocol {
	case ListenerTypeTelnet:
		return listener.NewTelnetListener(cl.Host, cl.Port, cm), nil
	case ListenerTypeSSH:
		hostKey, err := cl.hostKey()
		if err != nil {
			return nil, fmt.Errorf("setting up ssh host key: %w", err)
		}
		return listener.NewSshListener(cl.Host, cl.Port, cm, hostKey, listener.WithOperators(cl.Operators...)), nil
	default:
		return nil, fmt.Errorf("unknown listener type: %v", cl.Protocol)
	}
}

// hostKey reads the configured key, writing a new one first when the file is
// missing. With no path the key lives only as long as the process.
func (cl *ListenerConfig) hostKey() (ssh.Signer, error) {
	if cl.HostKeyPath == "" {
		slog.Warn("ssh listener has no host_key_path, its fingerprint changes on restart", "port", cl.Port)
		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generating key: %w", err)
		}
		return ssh.NewSignerFromKey(key)
	}

	pemBytes, err := os.ReadFile(cl.HostKeyPath)
	if os.IsNotExist(err) {
		pemBytes, err = writeHostKey(cl.HostKeyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", cl.HostKeyPath, err)
	}

	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", cl.HostKeyPath, err)
	}
	return signer, nil
}

func writeHostKey(path string) ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(key, "go-park console")
	if err != nil {
		return nil, fmt.Errorf("encoding key: %w", err)
	}
	pemBytes := pem.EncodeToMemory(block)
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, err
	}
	slog.Info("wrote new ssh host key", "path", path)
	return pemBytes, nil
}
