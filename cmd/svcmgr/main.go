// Package main is the entry point for svcmgr.
package main

import "github.com/axondata/go-servicemanager/internal/cli"

func main() {
	cli.Execute()
}
