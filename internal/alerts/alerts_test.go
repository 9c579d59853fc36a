package alerts

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRateLimitsPerKind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	n := NewNotifier("", dir)
	n.minGap = time.Hour

	n.Send(KillSwitchTriggered, "first", nil)
	n.Send(KillSwitchTriggered, "second", nil)

	data, err := os.ReadFile(filepath.Join(dir, "alerts.log"))
	require.NoError(t, err)
	assert.Equal(t, 1, count(string(data), "kind=KillSwitchTriggered"))
}

func TestSendAllowsDifferentKinds(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	n := NewNotifier("", dir)
	n.minGap = time.Hour

	n.Send(KillSwitchTriggered, "a", nil)
	n.Send(DatabaseConnectivityIssue, "b", nil)

	data, err := os.ReadFile(filepath.Join(dir, "alerts.log"))
	require.NoError(t, err)
	assert.Equal(t, 1, count(string(data), "kind=KillSwitchTriggered"))
	assert.Equal(t, 1, count(string(data), "kind=DatabaseConnectivityIssue"))
}

func count(haystack, substr string) int {
	n := 0
	for i := 0; i+len(substr) <= len(haystack); i++ {
		if haystack[i:i+len(substr)] == substr {
			n++
		}
	}
	return n
}
