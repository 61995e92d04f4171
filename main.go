package main

import "deploywizard/cmd"

func main() {
	cmd.Execute()
}
