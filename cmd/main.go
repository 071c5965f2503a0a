package main

import (
	"os"

	"github.com/graphein/graphein/cmd/graphein"
)

func main() {
	if err := graphein.Execute(); err != nil {
		os.Exit(1)
	}
}
