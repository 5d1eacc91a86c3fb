package main

import "github.com/TopCodeBeast/subswap/internal/cli"

func main() {
	cli.Execute()
}
