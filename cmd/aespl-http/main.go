package main

import "github.com/ashep/esp-lib/internal/cli"

func main() {
	cli.Execute()
}
