package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "webgate:credential:sid-1", Key("credential", "sid-1"))
	assert.Equal(t, "webgate:ratelimit:10.0.0.1", Key("ratelimit", "10.0.0.1"))
}
