package main

import "github.com/forPelevin/matchcut/internal/cli"

func main() {
	cli.Main()
}
