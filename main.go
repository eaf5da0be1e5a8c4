package main

import "github.com/tanq16/downloader/cmd"

func main() {
	cmd.Execute()
}
