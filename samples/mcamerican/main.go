// Command mcamerican prices an American option on the simulated accelerator
// with the Longstaff-Schwartz pipeline and checks it against a golden price.
package main

import (
	"os"

	"github.com/sarchlab/mcengine/config"
	"github.com/sarchlab/mcengine/samples/host"
	"github.com/tebeka/atexit"
)

func main() {
	defaults := config.DefaultConfig()

	atexit.Exit(host.Run("mcamerican", defaults, os.Args[1:], os.Stdout))
}
