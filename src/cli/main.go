package main

import (
	"os"

	"github.com/gurumnet/ci-jobs/src/cli/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
