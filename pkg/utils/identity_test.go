package utils_test

import (
	"testing"

	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestPDSHostFromHandle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		handle string
		want   string
		ok     bool
	}{
		{name: "hosted handle", handle: "alice.bsky.social", want: "bsky.social", ok: true},
		{name: "custom domain", handle: "bob.example.com", want: "example.com", ok: true},
		{name: "apex domain", handle: "example.com", want: "example.com", ok: true},
		{name: "uppercase and at sign", handle: "@Carol.Forum.Example", want: "forum.example", ok: true},
		{name: "invalid handle", handle: "not a handle", ok: false},
		{name: "empty", handle: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := utils.PDSHostFromHandle(tt.handle)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidDID(t *testing.T) {
	t.Parallel()

	assert.True(t, utils.ValidDID("did:plc:abc123xyz"))
	assert.True(t, utils.ValidDID("did:web:forum.example.com"))
	assert.False(t, utils.ValidDID("plc:abc"))
	assert.False(t, utils.ValidDID(""))
}

func TestValidATURI(t *testing.T) {
	t.Parallel()

	assert.True(t, utils.ValidATURI("at://did:plc:abc123xyz/forum.barazo.topic/3k2a"))
	assert.False(t, utils.ValidATURI("https://example.com/post/1"))
}

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	host, ok := utils.NormalizeHost(" Bsky.Social ")
	assert.True(t, ok)
	assert.Equal(t, "bsky.social", host)

	_, ok = utils.NormalizeHost("localhost")
	assert.False(t, ok)

	_, ok = utils.NormalizeHost("https://bsky.social")
	assert.False(t, ok)
}
