// Package echo implements the TCP echo server and client the svcmgr CLI
// installs as a service to verify a backend end to end.
package echo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"vawter.tech/stopper"
)

// ReadyMessage is logged once the listener accepts connections
const ReadyMessage = "echo server listening"

// stopGrace bounds how long open connections may take to unwind
const stopGrace = time.Second

// ListenAndServe binds addr and serves until ctx is done
func ListenAndServe(ctx context.Context, addr string, logger *slog.Logger) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, logger)
}

// Serve echoes every byte received on each accepted connection back to its
// sender. It returns nil once ctx is done, or the error that broke the
// accept loop. The listener is always closed.
func Serve(ctx context.Context, ln net.Listener, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sctx := stopper.WithContext(ctx)
	acceptErr := make(chan error, 1)

	sctx.Go(func(sctx *stopper.Context) error {
		select {
		case <-sctx.Stopping():
		case <-ctx.Done():
		}
		cancel()
		_ = ln.Close()
		return nil
	})

	sctx.Go(func(sctx *stopper.Context) error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				acceptErr <- err
				cancel()
				return nil
			}
			logger.Info("new connection", "remote", conn.RemoteAddr().String())
			sctx.Go(func(*stopper.Context) error {
				serveConn(ctx, conn, logger)
				return nil
			})
		}
	})

	logger.Info(ReadyMessage, "addr", ln.Addr().String())

	<-ctx.Done()
	sctx.Stop(stopGrace)
	_ = sctx.Wait()

	select {
	case err := <-acceptErr:
		return err
	default:
		return nil
	}
}

// serveConn copies the connection onto itself until the peer closes its
// side or ctx is done
func serveConn(ctx context.Context, conn net.Conn, logger *slog.Logger) {
	remote := conn.RemoteAddr().String()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	n, err := io.Copy(conn, conn)
	if err != nil && ctx.Err() == nil {
		logger.Warn("connection terminated", "remote", remote, "bytes", n, "error", err)
		return
	}
	logger.Info("connection closed", "remote", remote, "bytes", n)
}
