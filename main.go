package main

import "github.com/mouse-blink/refit/cmd"

func main() {
	cmd.Execute()
}
