package main

import "github.com/KaramelBytes/tripboard/cmd"

func main() {
	cmd.Execute()
}
