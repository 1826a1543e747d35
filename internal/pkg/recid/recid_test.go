package recid

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Format(t *testing.T) {
	now := time.UnixMilli(1234567890)
	id := New(now)
	assert.Regexp(t, regexp.MustCompile(`^notification_1234567890_[0-9a-z]{9}$`), id)
}

func TestNew_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := New(now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
