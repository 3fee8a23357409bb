// Command mceuropean prices a European option. With a single time step the
// pipeline has nothing to exercise early, so the calibration is empty.
package main

import (
	"os"

	"github.com/sarchlab/mcengine/config"
	"github.com/sarchlab/mcengine/samples/host"
	"github.com/tebeka/atexit"
)

const (
	goldenPrice     = 3.834522
	goldenTolerance = 0.02
)

func main() {
	defaults := config.DefaultConfig()
	defaults.Engine.TimeSteps = 1
	defaults.Check.Golden = goldenPrice
	defaults.Check.Tolerance = goldenTolerance

	atexit.Exit(host.Run("mceuropean", defaults, os.Args[1:], os.Stdout))
}
