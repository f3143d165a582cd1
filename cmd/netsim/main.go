package main

import "github.com/sarchlab/netsync/cmd/netsim/cmd"

func main() {
	cmd.Execute()
}
