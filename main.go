package main

import "github.com/applounge/lounge/cmd"

func main() {
	cmd.Execute()
}
