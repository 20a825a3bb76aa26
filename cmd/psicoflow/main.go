// PsicoFlow - mental-health screening intake service
package main

import (
	"fmt"
	"os"

	"github.com/ashureev/psicoflow/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
