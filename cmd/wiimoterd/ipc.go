package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// UIs, scripts and wiictl drive the watcher through this socket: they bind
// targets (watch_begin, pointer_enter/pointer_leave), forward key presses and
// push samples from devices the daemon cannot open itself.
//
// Protocol: one JSON envelope per line, one JSON reply per request line.
//   - request: {"type": "watch_begin", "data": {"target": "canvas"}}
//   - reply:   {"status": "ok"} or {"status": "error", "error": "..."}
//
// Requests are never queued behind a busy daemon: a full event queue is
// reported back to the client as an error.
// ============================================================================

// ipcMaxLine caps a single request line. Longer lines end the connection.
const ipcMaxLine = 64 * 1024

// IPCResponse is the reply to one request line.
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // set when Status is "error"
}

func ipcOK() IPCResponse { return IPCResponse{Status: "ok"} }

func ipcError(format string, args ...any) IPCResponse {
	return IPCResponse{Status: "error", Error: fmt.Sprintf(format, args...)}
}

// runIPCServer serves the socket until ctx is canceled. On shutdown it closes
// the listener and every open connection, and waits for their handlers.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// A stale socket from a previous run would make Listen fail.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		_ = listener.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()
	defer listener.Close()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveIPCConn(ctx, conn, events, logger)
		}()
	}
}

// serveIPCConn answers request lines on conn until the client hangs up, a
// line is too long, or ctx is canceled.
func serveIPCConn(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger = logger.With("remote_addr", conn.RemoteAddr().String())
	logger.Debug("IPC connection opened")

	enc := json.NewEncoder(conn)
	reply := func(resp IPCResponse) bool {
		if err := enc.Encode(resp); err != nil {
			logger.Debug("IPC reply failed", "error", err, "status", resp.Status)
			return false
		}
		return true
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), ipcMaxLine)

	requests := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		requests++
		logger.Debug("IPC request", "line", line)

		if !reply(dispatchIPCLine(line, events)) {
			return
		}
	}

	if err := scanner.Err(); errors.Is(err, bufio.ErrTooLong) {
		reply(ipcError("request line exceeds %d bytes", ipcMaxLine))
	}
	logger.Debug("IPC connection closed", "requests", requests)
}

// dispatchIPCLine decodes one request and hands it to the daemon loop.
func dispatchIPCLine(line string, events chan<- Event) IPCResponse {
	ev, err := UnmarshalEvent([]byte(line))
	if err != nil {
		return ipcError("parse event: %v", err)
	}
	select {
	case events <- ev:
		return ipcOK()
	default:
		return ipcError("event queue full")
	}
}
