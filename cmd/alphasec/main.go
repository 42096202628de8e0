package main

import (
	"github.com/alphasec-trade/alphasec-go/pkg/cmd"
)

func main() {
	cmd.Execute()
}
