package main

import "github.com/KaramelBytes/reportloom-cli/cmd"

func main() {
	cmd.Execute()
}
