// Command slotctl queries a running availability service over gRPC and applies
// schema migrations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(dialComputer).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
