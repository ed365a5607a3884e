package main

import "github.com/polis-labs/chronicler/cmd"

func main() {
	cmd.Execute()
}
