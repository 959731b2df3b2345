package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	cli "github.com/spf13/pflag"

	"mitravox/internal/config"
	"mitravox/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", config.DefaultSocket, "Control socket path")
	timeout := cli.DurationP("timeout", "t", 3*time.Second, "Request timeout")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: vox-ctl [flags] trigger | status | lang <en|hi|te>")
		cli.PrintDefaults()
	}
	cli.Parse()

	req, ok := request(cli.Args())
	if !ok {
		cli.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := ipc.Send(ctx, *socket, req)
	if err != nil {
		fmt.Println("vox-daemon not running:", err)
		os.Exit(1)
	}
	if !resp.OK {
		fmt.Println("error:", resp.Error)
		os.Exit(1)
	}

	switch {
	case resp.Tap != "":
		fmt.Println(resp.Tap)
	case resp.Snapshot != nil:
		out, _ := json.MarshalIndent(resp.Snapshot, "", "  ")
		fmt.Println(string(out))
	}
}

func request(args []string) (ipc.Request, bool) {
	if len(args) == 0 {
		return ipc.Request{Cmd: ipc.CmdTrigger}, true
	}

	switch args[0] {
	case ipc.CmdTrigger, ipc.CmdStatus:
		return ipc.Request{Cmd: args[0]}, len(args) == 1
	case ipc.CmdLang:
		if len(args) != 2 {
			return ipc.Request{}, false
		}
		return ipc.Request{Cmd: ipc.CmdLang, Arg: args[1]}, true
	default:
		return ipc.Request{}, false
	}
}
