// Command managerapp is the ManagerApp console: a local single-user server
// and one-shot commands that share its session, route guard and screens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(defaultEnvironment()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Erro: %v\n", err)
		os.Exit(1)
	}
}
