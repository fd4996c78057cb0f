package main

import "github.com/oshokin/selfupdate/cmd/packager/cmd"

func main() {
	cmd.Execute()
}
