package main

import "github.com/eigerco/beaconoracle/cmd/oracled/cmd"

func main() {
	cmd.Execute()
}
