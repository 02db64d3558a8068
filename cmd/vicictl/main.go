package main

import (
	"fmt"
	"os"

	"github.com/danmuck/vicictl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vicictl: %v\n", err)
		os.Exit(1)
	}
}
