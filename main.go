package main

import "github.com/evcc-io/cdrive/cmd"

func main() {
	cmd.Execute()
}
