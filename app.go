package main

import "github.com/masmgr/keycheck-go/cmd"

func main() {
	cmd.Run()
}
