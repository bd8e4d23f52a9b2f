package main

import "github.com/narumatt/sqlitefs/cmd"

func main() {
	cmd.Execute()
}
