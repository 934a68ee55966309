package main

import (
	"os"

	"github.com/hashicorp-forge/distributor/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
