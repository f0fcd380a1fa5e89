package main

import "github.com/pfrederiksen/libcal-rooms/internal/cli"

func main() {
	cli.Execute()
}
