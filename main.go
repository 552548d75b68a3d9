package main

import "brdgen/cmd"

func main() {
	cmd.Execute()
}
