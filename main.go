package main

import "github.com/KaramelBytes/dairyreport/cmd"

func main() {
	cmd.Execute()
}
