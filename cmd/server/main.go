package main

import "github.com/Togather-Foundation/gallery/cmd/server/cmd"

func main() {
	cmd.Execute()
}
