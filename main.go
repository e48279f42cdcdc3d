package main

import "cloud-ha/cmd"

func main() {
	cmd.Execute()
}
