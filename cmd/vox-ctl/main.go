package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"voxchat/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: vox-ctl [flags] trigger|listen|stop|clear|status|history|settings|key <value>")
		cli.PrintDefaults()
	}
	cli.Parse()

	cmd := "trigger"
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}
	arg := strings.Join(cli.Args()[min(1, cli.NArg()):], " ")

	if cmd == "key" && arg == "" {
		fmt.Fprintln(os.Stderr, "key: missing value")
		os.Exit(2)
	}

	reply, err := ipc.SendCommand(*socket, ipc.ControlMessage{Cmd: cmd, Arg: arg})
	if err != nil {
		fmt.Println("vox-daemon not running:", err)
		os.Exit(1)
	}

	if !reply.OK {
		fmt.Println("error:", reply.Error)
	}

	state := reply.Activity
	if reply.ErrorFlag {
		state += " (last turn failed)"
	}
	fmt.Printf("%s, %d messages\n", state, reply.Messages)

	switch cmd {
	case "settings":
		if reply.Credential == "" {
			fmt.Println("API key: not configured")
		} else {
			fmt.Println("API key:", reply.Credential)
		}
	case "history":
		for _, m := range reply.History {
			fmt.Printf("%-9s %s\n", m.Role+":", m.Content)
		}
	}

	if !reply.OK {
		os.Exit(1)
	}
}
