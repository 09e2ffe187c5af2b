package main

import "github.com/fakeyudi/annotate/cmd"

func main() {
	cmd.Execute()
}
