// Command delila-recover is the offline recovery tool: given a .delila
// file left without a valid footer by a crashed recorder, it validates
// the file, copies its recoverable data blocks into a new file, and
// writes a freshly computed footer. Wraps internal/recorder.Recover.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aogaki/delila-go/internal/recorder"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <src.delila> <dst.delila>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	src, dst := flag.Arg(0), flag.Arg(1)

	result, err := recorder.Recover(src, dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "delila-recover: %v\n", err)
		if len(result.Errors) > 0 {
			fmt.Fprintln(os.Stderr, "validation errors:")
			for _, e := range result.Errors {
				fmt.Fprintf(os.Stderr, "  - %s\n", e)
			}
		}
		os.Exit(1)
	}

	fmt.Printf("recovered %s -> %s: %d blocks, %d events\n",
		src, dst, result.RecoverableBlocks, result.RecoverableEvents)
}
