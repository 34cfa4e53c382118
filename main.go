package main

import "github.com/longkey1/bddgen/cmd"

func main() {
	cmd.Execute()
}
