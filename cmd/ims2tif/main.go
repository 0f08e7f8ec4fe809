package main

import (
	"ims2tif/internal/cli"
)

func main() {
	cli.Execute(cli.NewRootCommand())
}
