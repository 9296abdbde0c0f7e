// check_resources - Nagios check for OpenStack resource health.
// List. Classify. Report.
package main

import (
	"os"
)

func main() {
	os.Exit(newApp(os.Stdout, os.Stderr).execute(os.Args[1:]))
}
