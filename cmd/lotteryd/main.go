package main

import (
	"fmt"
	"os"

	"github.com/ArowuTest/etherlotto-backend/cmd/lotteryd/cmd"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}
