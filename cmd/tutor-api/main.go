// Command tutor-api serves the peer tutoring API.
//
//	@title			Tutoring API
//	@version		1.0
//	@description	Peer tutoring requests, chats, and the skillpoints ledger.
//	@BasePath		/api/v1
package main

import (
	"fmt"
	"os"

	"github.com/tbourn/go-tutor-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
