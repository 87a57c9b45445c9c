// logicbits/cmd/logicbits/main.go

package main

import (
	"os"

	"rgehrsitz/logicbits/pkg/logging"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		logging.LogError(logging.Logger, err)
		os.Exit(1)
	}
}
