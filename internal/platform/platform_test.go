package platform

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vstojkovic/bugle/internal/bus"
	"github.com/vstojkovic/bugle/internal/model"
)

func TestCanUpdateRequiresUserAndOnline(t *testing.T) {
	s := NewSteam(zerolog.Nop(), bus.NewSender(), func() bool { return true })
	if s.CanUpdate() {
		t.Fatal("expected CanUpdate() to be false before a user is known")
	}

	s.SetUser(model.PlatformUser{SteamID: 1, Online: true})
	if !s.CanUpdate() {
		t.Fatal("expected CanUpdate() to be true once a user is known and online")
	}
}

func TestNeedsUpdateOnlyForPlatformProvenance(t *testing.T) {
	s := NewSteam(zerolog.Nop(), bus.NewSender(), func() bool { return true })

	local := &model.ModEntry{Provenance: model.ProvenanceLocal}
	local.SetNeedsUpdate(true)
	if ok, err := s.NeedsUpdate(local); err != nil || ok {
		t.Fatalf("NeedsUpdate(local) = (%v, %v), want (false, nil)", ok, err)
	}

	steamEntry := &model.ModEntry{Provenance: model.ProvenanceSteam}
	steamEntry.SetNeedsUpdate(true)
	if ok, err := s.NeedsUpdate(steamEntry); err != nil || !ok {
		t.Fatalf("NeedsUpdate(steam) = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestStartUpdateFailsWithoutSession(t *testing.T) {
	s := NewSteam(zerolog.Nop(), bus.NewSender(), func() bool { return false })
	entry := &model.ModEntry{Provenance: model.ProvenanceSteam}

	if _, err := s.StartUpdate(entry); err != ErrNoSession {
		t.Fatalf("StartUpdate() err = %v, want ErrNoSession", err)
	}
}

func TestStartUpdateCompletesAndClearsNeedsUpdate(t *testing.T) {
	s := NewSteam(zerolog.Nop(), bus.NewSender(), func() bool { return true })
	s.SetUser(model.PlatformUser{SteamID: 1, Online: true})

	entry := &model.ModEntry{Provenance: model.ProvenanceSteam}
	entry.SetNeedsUpdate(true)

	update, err := s.StartUpdate(entry)
	if err != nil {
		t.Fatalf("StartUpdate: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if update.State().IsReady() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !update.State().IsReady() {
		t.Fatal("expected update to complete within timeout")
	}
	if entry.NeedsUpdate() {
		t.Error("expected NeedsUpdate to be cleared after update completes")
	}
}
