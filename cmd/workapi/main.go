package main

import "github.com/workstack/workstack/cmd/workapi/cmd"

func main() {
	cmd.Execute()
}
