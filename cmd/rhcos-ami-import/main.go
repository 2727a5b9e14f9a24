// Package main is the entry point for the rhcos-ami-import CLI.
//
// rhcos-ami-import publishes RHCOS disk images as publicly launchable
// AWS AMIs for a set of OpenShift release channels. For detailed usage
// information, run:
//
//	rhcos-ami-import --help
package main

import (
	"fmt"
	"os"

	"github.com/openshift-eng/rhcos-ami-import/cmd/rhcos-ami-import/commands"
)

func main() {
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
