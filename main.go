//go:build linux
// +build linux

package main

import "github.com/fachebot/talk-digest-bot/cmd"

func main() {
	cmd.Execute()
}
