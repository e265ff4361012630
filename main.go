package main

import "github.com/KaramelBytes/tallyloom/cmd"

func main() {
	cmd.Execute()
}
