package main

import "github.com/consultkit/fwassist/cmd"

func main() {
	cmd.Execute()
}
