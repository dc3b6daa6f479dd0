package main

import "github.com/MeKo-Tech/capgo/cmd/capgo/cmd"

func main() {
	cmd.Execute()
}
