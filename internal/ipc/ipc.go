package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net"
	"os"
	"time"

	"voxchat/internal/chat"
)

const (
	DefaultSocketPath = "/tmp/vox.sock"

	ioTimeout = 5 * time.Second
)

type ControlMessage struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

type ControlReply struct {
	OK         bool           `json:"ok"`
	Error      string         `json:"error,omitempty"`
	Activity   string         `json:"activity,omitempty"`
	ErrorFlag  bool           `json:"error_flag,omitempty"`
	Messages   int            `json:"messages"`
	History    []chat.Message `json:"history,omitempty"`
	Credential string         `json:"credential,omitempty"`
}

type Handler func(ControlMessage) ControlReply

// StartServer listens on the unix socket at path and answers each
// connection's single message with handler's reply. Close the returned
// listener to stop serving.
func StartServer(path string, handler Handler) (io.Closer, error) {
	os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if err != nil {
				log.Warn("Control accept failed", "err", err)
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return ln, nil
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		return
	}

	log.Debug("Control message", "cmd", msg.Cmd)

	// The handler may block on the session, so the deadline covers only I/O.
	reply := handler(msg)
	_ = conn.SetDeadline(time.Now().Add(ioTimeout))

	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("Failed to send control reply", "err", err)
	}
}

func SendCommand(path string, msg ControlMessage) (ControlReply, error) {
	conn, err := net.DialTimeout("unix", path, ioTimeout)
	if err != nil {
		return ControlReply{}, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * ioTimeout))

	if err := json.NewEncoder(conn).Encode(msg); err != nil {
		return ControlReply{}, fmt.Errorf("send: %w", err)
	}

	var reply ControlReply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return ControlReply{}, fmt.Errorf("read reply: %w", err)
	}

	return reply, nil
}
