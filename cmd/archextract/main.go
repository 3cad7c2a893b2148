package main

import "github.com/mvp-joe/archextract/internal/cli"

func main() {
	cli.Execute()
}
