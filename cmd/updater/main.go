package main

import "github.com/oshokin/selfupdate/cmd/updater/cmd"

func main() {
	cmd.Execute()
}
