package main

import "github.com/RyanBlaney/spectrum-analyzer/cmd"

func main() {
	cmd.Execute()
}
