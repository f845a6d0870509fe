package announce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "console/nas/port", topicFor("console", "nas"))
	assert.Equal(t, "lab/consoles/pve1/port", topicFor("lab/consoles", "pve1"))
}

func TestClientIdsAreUnique(t *testing.T) {
	assert.NotEqual(t, generateClientId(), generateClientId())
}
