package scheduler

import (
	"testing"
	"time"

	"github.com/bdrazn/adkextension/internal/session"
)

func TestSweeperDisabledWithoutTTL(t *testing.T) {
	s := New(session.NewInMemoryService(), 0)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Stop()
}

func TestSweeperStartStop(t *testing.T) {
	s := New(session.NewInMemoryService(), 30*time.Minute)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Stop()
}
