// Cache-demo serves a greeting endpoint behind the response cache so the
// cache's hit, miss, expiry and conditional request behavior can be observed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults are used when empty)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("cache-demo", version)
		os.Exit(0)
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
