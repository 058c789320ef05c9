package main

import "github.com/grubslash/client/cmd"

func main() {
	cmd.Execute()
}
