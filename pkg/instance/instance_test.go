package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersExplicitOverride(t *testing.T) {
	t.Setenv("STOCKDESK_INSTANCE_ID", "cron-1")
	t.Setenv("DYNO", "worker.1")
	assert.Equal(t, "cron-1", ID())
}

func TestIDFallsBackToDyno(t *testing.T) {
	t.Setenv("STOCKDESK_INSTANCE_ID", "")
	t.Setenv("DYNO", "web.2")
	assert.Equal(t, "web.2", ID())
}

func TestIDDefaultsToLocal(t *testing.T) {
	for _, key := range sources {
		t.Setenv(key, "")
	}
	assert.Equal(t, "local", ID())
}
