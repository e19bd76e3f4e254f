package main

import "frame-viewer/internal/cli"

func main() {
	cli.Execute()
}
