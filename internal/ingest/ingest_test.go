package ingest

import (
	"context"
	"log/slog"
	"testing"
)

func TestApplySkipsBadEvents(t *testing.T) {
	// Poison events must report success so the caller commits them;
	// failing the message would wedge the partition on input that can
	// never succeed.
	c := &Consumer{logger: slog.Default()}

	tests := []struct {
		name  string
		value []byte
	}{
		{"undecodable", []byte("not json")},
		{"missing name", []byte(`{"synopsis":"no name here"}`)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := c.apply(context.Background(), []byte("key"), tc.value); err != nil {
				t.Errorf("apply returned %v, want nil (commit and skip)", err)
			}
		})
	}
}
