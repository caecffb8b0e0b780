package main

import (
	"github.com/ccicconetti/serverlessedge/cmd"
)

func main() {
	cmd.Execute()
}
