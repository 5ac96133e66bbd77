// cmd/heritageload/main.go
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/FairForge/heritageload/cmd/heritageload/cmd"
	"github.com/FairForge/heritageload/internal/loadtest"
)

func main() {
	err := cmd.RootCmd().Execute()
	switch {
	case err == nil:
	case errors.Is(err, loadtest.ErrThresholdsFailed):
		os.Exit(loadtest.ExitThresholdsFailed)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
