package main

import "github.com/KaramelBytes/stability-cli/cmd"

func main() {
	cmd.Execute()
}
