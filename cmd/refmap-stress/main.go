// Command refmap-stress runs configurable churn workloads against the
// refmap variants and reports liveness counters over Prometheus.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/refmap-go/internal/stress"
)

func main() {
	app := stress.App()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "refmap-stress:", err)
		os.Exit(1)
	}
}
