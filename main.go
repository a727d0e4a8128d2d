package main

import "github.com/medalfm/medalfm/cmd"

func main() {
	cmd.Execute()
}
