package main

import "github.com/naka-gawa/github-contributors/cmd"

func main() {
	cmd.Execute()
}
