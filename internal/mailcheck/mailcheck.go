// Package mailcheck probes tenant mailbox credentials with a live IMAP
// login before they are persisted. Registration blocks on this check.
package mailcheck

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/v2/imapclient"
)

type Verifier struct {
	host    string
	port    int
	timeout time.Duration
}

func New(host string, port int, timeout time.Duration) *Verifier {
	return &Verifier{
		host:    host,
		port:    port,
		timeout: timeout,
	}
}

// Check dials the configured IMAP host over TLS, authenticates with the
// supplied address and app key, and logs out again. The whole handshake
// is bounded by the configured timeout so an unreachable mail host
// cannot stall the signup path.
func (v *Verifier) Check(ctx context.Context, address, appKey string) error {
	const op = "mailcheck.Check"

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: v.timeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(v.host, fmt.Sprintf("%d", v.port)))
	if err != nil {
		return fmt.Errorf("%s: failed to reach mail server: %w", op, err)
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: v.host})

	deadline, ok := ctx.Deadline()
	if ok {
		_ = tlsConn.SetDeadline(deadline)
	}

	client := imapclient.New(tlsConn, nil)
	defer client.Close()

	if err := client.Login(address, appKey).Wait(); err != nil {
		return fmt.Errorf("%s: invalid email or app key: %w", op, err)
	}

	if err := client.Logout().Wait(); err != nil {
		// Credentials already proved out; a noisy logout is not a failure.
		return nil
	}

	return nil
}
