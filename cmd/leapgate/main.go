// Command leapgate is the SQL execution gateway.
package main

import (
	"os"

	"github.com/leapstack-labs/leapgate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
