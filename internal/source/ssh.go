package source

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig describes where a recording lives on a remote acquisition host.
type SSHConfig struct {
	Host     string
	User     string
	Password string
	KeyPath  string
	Port     int
	Path     string
	Timeout  time.Duration
}

// SSH loads a recording by streaming it with cat over an SSH session.
type SSH struct {
	cfg SSHConfig
}

// NewSSH validates cfg and fills in defaults.
func NewSSH(cfg SSHConfig) (*SSH, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ssh host is required")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("remote recording path is required")
	}
	if cfg.Password == "" && cfg.KeyPath == "" {
		return nil, fmt.Errorf("no ssh password or key configured")
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &SSH{cfg: cfg}, nil
}

func (s *SSH) String() string {
	return fmt.Sprintf("%s@%s:%s", s.cfg.User, s.address(), s.cfg.Path)
}

// Load fetches the remote file.
func (s *SSH) Load(ctx context.Context) ([]byte, error) {
	client, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("create ssh session: %w", err)
	}
	defer session.Close()

	var stderr strings.Builder
	session.Stderr = &stderr
	data, err := session.Output("cat " + shellQuote(s.cfg.Path))
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("read remote recording: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("read remote recording: %w", err)
	}
	return data, nil
}

func (s *SSH) authMethods() ([]ssh.AuthMethod, error) {
	var auth []ssh.AuthMethod
	if s.cfg.Password != "" {
		auth = append(auth, ssh.Password(s.cfg.Password))
	}
	if s.cfg.KeyPath != "" {
		key, err := os.ReadFile(s.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	return auth, nil
}

func (s *SSH) dial(ctx context.Context) (*ssh.Client, error) {
	auth, err := s.authMethods()
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.cfg.Timeout,
	}

	addr := s.address()
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial ssh: %w", err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create ssh client: %w", err)
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

func (s *SSH) address() string {
	return net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
}

// shellQuote wraps value in single quotes with embedded quotes escaped.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
