// Package main is the entry point for the jobwatch binary.
package main

import "github.com/jobwatch/jobwatch/cmd"

func main() {
	cmd.Execute()
}
