package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	cli := parseArgs(os.Args[1:])

	switch cli.mode {
	case runMode:
		runMain(cli.Run)
	case verifyMode:
		verifyMain(cli.Verify)
	case versionMode:
		fmt.Println("amber", version)
	}
}
