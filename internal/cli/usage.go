package cli

import "fmt"

// Name is the tool name shown in usage and version output.
const Name = "qstat"

// Usage is the static text printed for bare --help and usage errors.
const Usage = Name + ` — Inspect and report on the elemta outbound queue
Usage: qstat [options]
Options:
	-v, --version 		Outputs version number
	-h, --help    		Outputs this help message
	-h NAME       		Shows help for NAME
	-c, --configs 		Path to your config directory
	-d, --daemon  		Run statistics as a daemon to report outbound queue size
	--qlist       		List the outbound queue
	--qstat       		Get statistics on the outbound queue
	--qempty      		Shows whether outbound queue is empty
	-i, --stats-interval N 	Report stats every N milliseconds (default 1000)
	--verbose     		Show the queue engine's own log output`

// VersionLine formats the --version output.
func VersionLine(version string) string {
	return fmt.Sprintf("%s — Version: %s", Name, version)
}
