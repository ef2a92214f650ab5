package main

import (
	"os"

	"github.com/rcliao/unotes/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
