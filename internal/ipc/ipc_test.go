package ipc

import (
	"path/filepath"
	"testing"
)

func TestSendCommand_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vox.sock")

	gotc := make(chan ControlMessage, 1)
	srv, err := StartServer(path, func(msg ControlMessage) ControlReply {
		gotc <- msg
		return ControlReply{OK: true, Activity: "listening", Messages: 2}
	})
	if err != nil {
		t.Fatalf("start server: %v", err)
	}
	defer srv.Close()

	reply, err := SendCommand(path, ControlMessage{Cmd: "key", Arg: "sk-or-v1-x"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	got := <-gotc
	if got.Cmd != "key" || got.Arg != "sk-or-v1-x" {
		t.Fatalf("server got %+v", got)
	}
	if !reply.OK || reply.Activity != "listening" || reply.Messages != 2 {
		t.Fatalf("reply: %+v", reply)
	}
}

func TestSendCommand_NoServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sock")
	if _, err := SendCommand(path, ControlMessage{Cmd: "status"}); err == nil {
		t.Fatalf("expected error without a server")
	}
}
