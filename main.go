package main

import "fleetlogix/cmd"

func main() {
	cmd.Execute()
}
