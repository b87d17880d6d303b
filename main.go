package main

import "github.com/Chative-core-poc-v1/companion/internal/cli"

func main() {
	cli.Execute()
}
