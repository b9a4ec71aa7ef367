package main

import "github.com/perarneng/getstatements/cmd"

func main() {
	cmd.Execute()
}
