package remote

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

var (
	ErrConnection     = errors.New("ssh: connection failed")
	ErrAuthentication = errors.New("ssh: authentication failed")
	ErrNotConnected   = errors.New("ssh: not connected")
)

type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	PrivateKey string
	Timeout    time.Duration
}

// CommandResult is the outcome of one remote command. A non-zero exit code
// is data, not an error; callers decide what counts as failure.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Client is an SSH session with lazily opened SFTP on top. All blocking
// remote I/O runs through the shared Pool so concurrent jobs cannot pile up
// unbounded blocked threads. Connect and Close form an explicit pair; Close
// is safe to call on every exit path.
type Client struct {
	cfg  Config
	pool *Pool

	mu   sync.Mutex
	conn *ssh.Client
	sftp *sftp.Client
}

func NewClient(cfg Config, pool *Pool) *Client {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if pool == nil {
		pool = NewPool(0)
	}
	return &Client{cfg: cfg, pool: pool}
}

// parseSigner tries key formats in a fixed priority order: OpenSSH/PEM
// first, then PKCS#8, PKCS#1 RSA and SEC1 EC containers. Only when every
// format fails is the key rejected.
func parseSigner(key []byte) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey(key)
	if err == nil {
		return signer, nil
	}
	firstErr := err

	block, _ := pem.Decode(key)
	if block == nil {
		return nil, firstErr
	}

	if k, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return ssh.NewSignerFromKey(k)
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return ssh.NewSignerFromKey(k)
	}
	if k, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return ssh.NewSignerFromKey(k)
	}

	return nil, firstErr
}

func (c *Client) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if c.cfg.PrivateKey != "" {
		signer, err := parseSigner([]byte(c.cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid private key: %v", ErrAuthentication, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if c.cfg.Password != "" {
		methods = append(methods, ssh.Password(c.cfg.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no credentials provided", ErrAuthentication)
	}
	return methods, nil
}

func (c *Client) Connect(ctx context.Context) error {
	methods, err := c.authMethods()
	if err != nil {
		return err
	}

	sshConfig := &ssh.ClientConfig{
		User:            c.cfg.User,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)

	return c.pool.Run(ctx, func() error {
		dialer := net.Dialer{Timeout: c.cfg.Timeout, KeepAlive: 60 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}

		conn.SetDeadline(time.Now().Add(c.cfg.Timeout))
		sc, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
		if err != nil {
			conn.Close()
			if strings.Contains(err.Error(), "unable to authenticate") ||
				strings.Contains(err.Error(), "no supported methods remain") {
				return fmt.Errorf("%w: %v", ErrAuthentication, err)
			}
			return fmt.Errorf("%w: %v", ErrConnection, err)
		}
		conn.SetDeadline(time.Time{})

		c.mu.Lock()
		c.conn = ssh.NewClient(sc, chans, reqs)
		c.mu.Unlock()
		return nil
	})
}

// Close releases the SFTP session (if opened) and the SSH connection.
// Safe to call multiple times and on a client that never connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.sftp != nil {
		err = c.sftp.Close()
		c.sftp = nil
	}
	if c.conn != nil {
		if cerr := c.conn.Close(); err == nil {
			err = cerr
		}
		c.conn = nil
	}
	return err
}

func (c *Client) connection() (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

// Execute runs a single command and reports stdout, stderr and exit code.
// The command is killed when the timeout elapses or ctx is cancelled.
func (c *Client) Execute(ctx context.Context, command string, timeout time.Duration) (CommandResult, error) {
	conn, err := c.connection()
	if err != nil {
		return CommandResult{}, err
	}
	if timeout == 0 {
		timeout = c.cfg.Timeout
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result CommandResult
	err = c.pool.Run(cmdCtx, func() error {
		session, err := conn.NewSession()
		if err != nil {
			return fmt.Errorf("%w: failed to create session: %v", ErrConnection, err)
		}
		defer session.Close()

		var stdout, stderr bytes.Buffer
		session.Stdout = &stdout
		session.Stderr = &stderr

		done := make(chan error, 1)
		go func() {
			done <- session.Run(command)
		}()

		select {
		case <-cmdCtx.Done():
			session.Signal(ssh.SIGKILL)
			session.Close()
			return fmt.Errorf("command timed out or cancelled: %w", cmdCtx.Err())
		case runErr := <-done:
			result.Stdout = stdout.String()
			result.Stderr = stderr.String()
			if runErr == nil {
				return nil
			}
			var exitErr *ssh.ExitError
			if errors.As(runErr, &exitErr) {
				result.ExitCode = exitErr.ExitStatus()
				return nil
			}
			var missing *ssh.ExitMissingError
			if errors.As(runErr, &missing) {
				result.ExitCode = -1
				return nil
			}
			return fmt.Errorf("%w: %v", ErrConnection, runErr)
		}
	})
	return result, err
}

// sftpClient opens the SFTP session on first use and reuses it afterwards.
func (c *Client) sftpClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	if c.sftp == nil {
		client, err := sftp.NewClient(c.conn)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open sftp session: %v", ErrConnection, err)
		}
		c.sftp = client
	}
	return c.sftp, nil
}

// UploadContent writes content to remotePath with the given mode.
func (c *Client) UploadContent(ctx context.Context, content, remotePath string, mode os.FileMode) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}
	return c.pool.Run(ctx, func() error {
		f, err := client.Create(remotePath)
		if err != nil {
			return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			f.Close()
			return fmt.Errorf("failed to write remote file %s: %w", remotePath, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close remote file %s: %w", remotePath, err)
		}
		return client.Chmod(remotePath, mode)
	})
}

func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}
	return c.pool.Run(ctx, func() error {
		local, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open local file %s: %w", localPath, err)
		}
		defer local.Close()

		remoteFile, err := client.Create(remotePath)
		if err != nil {
			return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
		}
		defer remoteFile.Close()

		if _, err := remoteFile.ReadFrom(local); err != nil {
			return fmt.Errorf("failed to upload %s: %w", localPath, err)
		}
		return nil
	})
}

func (c *Client) DownloadFile(ctx context.Context, remotePath, localPath string) error {
	client, err := c.sftpClient()
	if err != nil {
		return err
	}
	return c.pool.Run(ctx, func() error {
		remoteFile, err := client.Open(remotePath)
		if err != nil {
			return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
		}
		defer remoteFile.Close()

		local, err := os.Create(localPath)
		if err != nil {
			return fmt.Errorf("failed to create local file %s: %w", localPath, err)
		}
		defer local.Close()

		if _, err := remoteFile.WriteTo(local); err != nil {
			return fmt.Errorf("failed to download %s: %w", remotePath, err)
		}
		return nil
	})
}

func (c *Client) ReadFile(ctx context.Context, remotePath string) (string, error) {
	client, err := c.sftpClient()
	if err != nil {
		return "", err
	}
	var content string
	err = c.pool.Run(ctx, func() error {
		f, err := client.Open(remotePath)
		if err != nil {
			return fmt.Errorf("failed to open remote file %s: %w", remotePath, err)
		}
		defer f.Close()

		var buf bytes.Buffer
		if _, err := f.WriteTo(&buf); err != nil {
			return fmt.Errorf("failed to read remote file %s: %w", remotePath, err)
		}
		content = buf.String()
		return nil
	})
	return content, err
}

// TestConnection connects, runs a marker command, verifies the marker in the
// output and disconnects. It reports failure instead of returning an error.
func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	if err := c.Connect(ctx); err != nil {
		return false, err.Error()
	}
	defer c.Close()

	result, err := c.Execute(ctx, "echo 'connection_test'", 10*time.Second)
	if err != nil {
		return false, err.Error()
	}
	if !strings.Contains(result.Stdout, "connection_test") {
		return false, "unexpected test command output"
	}
	return true, ""
}
