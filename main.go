package main

import (
	"unframe/cmd"
)

func main() {
	cmd.Execute()
}
