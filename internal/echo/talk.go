package echo

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultTalkTimeout bounds a Talk call when ctx has no deadline
const DefaultTalkTimeout = 5 * time.Second

// Talk sends msg to the echo server at addr and returns what came back.
// It reads exactly len(msg) bytes.
func Talk(ctx context.Context, addr, msg string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTalkTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if _, err := io.WriteString(conn, msg); err != nil {
		return "", fmt.Errorf("write to %s: %w", addr, err)
	}

	buf := make([]byte, len(msg))
	n, err := io.ReadFull(conn, buf)
	if err != nil {
		return string(buf[:n]), fmt.Errorf("read from %s: %w", addr, err)
	}
	return string(buf), nil
}
