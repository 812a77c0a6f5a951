package main

import "github.com/javi11/romdeploy/cmd/romdeploy/cmd"

func main() {
	cmd.Execute()
}
