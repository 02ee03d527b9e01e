// Package main is the entry point of kara.
package main

import (
	"github.com/kara-engine/kara/cmd"
	"github.com/kara-engine/kara/config"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	cmd.Execute()
}
