package system

import (
	"testing"
	"time"
)

func TestNowIsUTC(t *testing.T) {
	now := New().Now()
	if now.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", now.Location())
	}
	if time.Since(now) > time.Minute {
		t.Errorf("clock far behind wall time: %v", now)
	}
}
