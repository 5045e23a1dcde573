package main

import "github.com/example/tablebot/cmd"

func main() {
	cmd.Execute()
}
