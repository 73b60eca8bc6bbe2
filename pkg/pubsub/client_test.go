package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unimart-ng/marketplace-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := map[string]struct{ project, name, want string }{
		"short id":      {"proj", "vendor-events", "projects/proj/topics/vendor-events"},
		"padded":        {"proj", "  vendor-events ", "projects/proj/topics/vendor-events"},
		"full name":     {"proj", "projects/other/topics/x", "projects/other/topics/x"},
		"no project":    {"", "vendor-events", ""},
		"no topic name": {"proj", "", ""},
	}
	for name, tc := range cases {
		assert.Equal(t, tc.want, TopicResourceName(tc.project, tc.name), name)
	}
}

func TestUniqueTopics(t *testing.T) {
	assert.Equal(t, []string{"events", "settlement"}, uniqueTopics([]string{"events", " events", "", "settlement"}))
	assert.Empty(t, uniqueTopics(nil))
}

func TestCredentialsPrefersInlineJSON(t *testing.T) {
	assert.Len(t, credentials(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Len(t, credentials(config.GCPConfig{ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Empty(t, credentials(config.GCPConfig{}))
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("events"))
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(t.Context()))
}
