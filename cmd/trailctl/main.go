package main

import "github.com/trailview/service-routes/cmd/trailctl/cmd"

func main() {
	cmd.Execute()
}
