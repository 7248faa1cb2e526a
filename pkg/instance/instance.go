package instance

import (
	"os"
	"strings"
)

var sources = []string{"STOCKDESK_INSTANCE_ID", "DYNO", "HOSTNAME"}

// ID names the running process for log fields and lock diagnostics.
func ID() string {
	for _, key := range sources {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return "local"
}
