package main

import "github.com/mcoot/draftroom/internal/cli"

func main() {
	cli.Execute()
}
