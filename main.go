package main

import "vetbiz/cmd"

func main() {
	cmd.Execute()
}
