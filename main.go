package main

import "github.com/ValentinKolb/dEcho/cmd"

func main() {
	cmd.Execute()
}
