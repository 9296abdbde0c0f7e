// endpoint_checks - derive NRPE URL and certificate checks from the Keystone catalog.
package main

import (
	"os"
)

func main() {
	os.Exit(newApp(os.Stdout, os.Stderr).execute(os.Args[1:]))
}
