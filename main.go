package main

import "github.com/episodarr/episodarr/cmd"

func main() {
	cmd.Execute()
}
