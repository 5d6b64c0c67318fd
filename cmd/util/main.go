package main

import (
	"github.com/shardchain/node/cmd/util/cmd"
)

func main() {
	cmd.Execute()
}
