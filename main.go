package main

import "github.com/cheahjs/replicate-image-bundler/cmd"

func main() {
	cmd.Execute()
}
