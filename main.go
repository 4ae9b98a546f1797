package main

import "github.com/ValentinKolb/dKV-connector/cmd"

func main() {
	cmd.Execute()
}
