package main

import "github.com/kozaktomas/photo-collage/cmd"

func main() {
	cmd.Execute()
}
