// blctl -- command-line front-end for the Broadlink LAN control engine.
package main

import "github.com/dantte-lp/gobroadlink/cmd/blctl/commands"

func main() {
	commands.Execute()
}
