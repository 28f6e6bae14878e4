package storage

import "testing"

func TestPresenceCache(t *testing.T) {
	c := newPresenceCache()

	if _, ok := c.get(7); ok {
		t.Fatal("fresh cache reported a hit")
	}

	c.set(7, true)
	present, ok := c.get(7)
	if !ok || !present {
		t.Errorf("get(7) = %v, %v after set true", present, ok)
	}

	c.set(7, false)
	present, ok = c.get(7)
	if !ok || present {
		t.Errorf("get(7) = %v, %v after set false", present, ok)
	}
}

func TestAvatarKeyAndURL(t *testing.T) {
	s := &SpacesService{bucket: "mapbot", region: "ams3", ArtRoot: "art"}

	if got, want := s.AvatarKey(42), "art/mappers/42.png"; got != want {
		t.Errorf("AvatarKey = %q, want %q", got, want)
	}
	want := "https://mapbot.ams3.cdn.digitaloceanspaces.com/art/mappers/42.png"
	if got := s.AvatarURL(42); got != want {
		t.Errorf("AvatarURL = %q, want %q", got, want)
	}
}
