package main

import "github.com/dgallion1/scholarly/internal/cli"

func main() {
	cli.Execute()
}
