// Command delila-status is the operator's command-line query tool: it
// dials a running stage's control-plane address, issues GetStatus (or
// Reset), and prints the reply. Wraps internal/control.Client.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aogaki/delila-go/internal/control"
	"github.com/aogaki/delila-go/internal/daqutil"
	"github.com/aogaki/delila-go/internal/state"
)

func main() {
	verbose := flag.Bool("v", false, "dump the full reply via go-spew instead of a one-line summary")
	reset := flag.Bool("reset", false, "send Reset instead of GetStatus")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-v] [-reset] <command-address>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	address := flag.Arg(0)

	client, err := control.Dial(address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "delila-status: dial %s: %v\n", address, err)
		os.Exit(1)
	}
	defer client.Close()

	cmd := state.Command{Kind: state.CmdGetStatus}
	if *reset {
		cmd = state.Command{Kind: state.CmdReset}
	}

	resp, err := client.Send(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "delila-status: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Print(daqutil.Dump(resp))
		return
	}

	fmt.Printf("state=%s success=%t message=%q\n", resp.State, resp.Success, resp.Message)
	if !resp.Success {
		os.Exit(1)
	}
}
