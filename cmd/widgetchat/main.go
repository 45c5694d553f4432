package main

import "github.com/corvino/widgetchat/internal/cli"

func main() {
	cli.Execute()
}
