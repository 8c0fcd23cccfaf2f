package main

import "github.com/atikulmunna/sharetail/internal/cmd"

func main() {
	cmd.Execute()
}
