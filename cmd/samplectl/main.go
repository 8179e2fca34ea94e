// Command samplectl runs sample-size, allocation and estimation offline.
package main

import (
	"os"

	"github.com/sahithikokkula/samplingapi/cmd/samplectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
