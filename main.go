package main

import "github.com/anonchat/goclaw-anon/cmd"

func main() {
	cmd.Execute()
}
