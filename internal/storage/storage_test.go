package storage

import (
	"context"
	"errors"
	"testing"

	"harmonia/internal/rooms"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPlaylistRoundTrip(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	entries := []PlaylistEntry{
		{Name: "first", URL: "https://example.com/1"},
		{Name: "second", URL: "https://example.com/2"},
	}
	saved, err := s.SavePlaylist(ctx, "favorites", "u1", entries)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := s.LoadPlaylist(ctx, "favorites", "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != saved.ID || loaded.OwnerID != "u1" {
		t.Fatalf("loaded = %+v", loaded)
	}
	if len(loaded.Entries) != 2 || loaded.Entries[0].URL != entries[0].URL || loaded.Entries[1].URL != entries[1].URL {
		t.Fatalf("entries out of order or missing: %+v", loaded.Entries)
	}
}

func TestLoadMissingPlaylist(t *testing.T) {
	s := testStorage(t)

	_, err := s.LoadPlaylist(context.Background(), "nope", "u1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPlaylistNameUniquePerOwner(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	if _, err := s.SavePlaylist(ctx, "mix", "u1", nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.SavePlaylist(ctx, "mix", "u1", nil); err == nil {
		t.Fatal("duplicate (name, owner) accepted")
	}
	// Another owner may reuse the name.
	if _, err := s.SavePlaylist(ctx, "mix", "u2", nil); err != nil {
		t.Fatalf("same name, other owner: %v", err)
	}
}

func TestAppendEntriesKeepsOrder(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	p, err := s.SavePlaylist(ctx, "mix", "u1", []PlaylistEntry{{Name: "a", URL: "u/a"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.AppendEntries(ctx, p.ID, []PlaylistEntry{{Name: "b", URL: "u/b"}, {Name: "c", URL: "u/c"}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	loaded, err := s.LoadPlaylist(ctx, "mix", "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"u/a", "u/b", "u/c"}
	if len(loaded.Entries) != len(want) {
		t.Fatalf("entries = %d, want %d", len(loaded.Entries), len(want))
	}
	for i, w := range want {
		if loaded.Entries[i].URL != w {
			t.Fatalf("entry %d = %q, want %q", i, loaded.Entries[i].URL, w)
		}
	}
}

func TestDeletePlaylistCascades(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	p, err := s.SavePlaylist(ctx, "mix", "u1", []PlaylistEntry{{Name: "a", URL: "u/a"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.DeletePlaylist(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.LoadPlaylist(ctx, "mix", "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load after delete: err = %v, want ErrNotFound", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(1) FROM playlist_entry WHERE playlist_id = ?`, p.ID).Scan(&n); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if n != 0 {
		t.Fatalf("%d orphaned entries after cascade delete", n)
	}

	if err := s.DeletePlaylist(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestListPlaylists(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		if _, err := s.SavePlaylist(ctx, name, "u1", nil); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}
	if _, err := s.SavePlaylist(ctx, "other", "u2", nil); err != nil {
		t.Fatalf("save other: %v", err)
	}

	lists, err := s.ListPlaylists(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lists) != 2 {
		t.Fatalf("lists = %d, want 2", len(lists))
	}
}

func TestBlacklist(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	const url = "https://example.com/banned"

	banned, err := s.IsBlacklisted(ctx, url)
	if err != nil || banned {
		t.Fatalf("fresh url: banned=%v err=%v", banned, err)
	}

	if err := s.BlacklistTrack(ctx, url, "mod1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	// Re-adding is a no-op, not an error.
	if err := s.BlacklistTrack(ctx, url, "mod2"); err != nil {
		t.Fatalf("re-add: %v", err)
	}

	banned, err = s.IsBlacklisted(ctx, url)
	if err != nil || !banned {
		t.Fatalf("after add: banned=%v err=%v", banned, err)
	}

	if err := s.UnblacklistTrack(ctx, url); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.UnblacklistTrack(ctx, url); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove: err = %v, want ErrNotFound", err)
	}
}

func TestHubPolicies(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	if err := s.SetHub(ctx, rooms.Policy{GuildID: "g1", HubChannelID: "c1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	// Replacing updates in place.
	if err := s.SetHub(ctx, rooms.Policy{
		GuildID: "g1", HubChannelID: "c1",
		NameTemplate: "room of %username", TransferOwnership: true,
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.SetHub(ctx, rooms.Policy{GuildID: "g2", HubChannelID: "c9"}); err != nil {
		t.Fatalf("set other guild: %v", err)
	}

	hubs, err := s.ListHubs(ctx, "g1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(hubs) != 1 {
		t.Fatalf("hubs = %d, want 1", len(hubs))
	}
	got := hubs[0]
	if got.NameTemplate != "room of %username" || !got.TransferOwnership {
		t.Fatalf("policy = %+v", got)
	}

	if err := s.RemoveHub(ctx, "g1", "c1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveHub(ctx, "g1", "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove: err = %v, want ErrNotFound", err)
	}
}

func TestDefaultTemplateApplied(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()

	if err := s.SetHub(ctx, rooms.Policy{GuildID: "g1", HubChannelID: "c1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	hubs, err := s.ListHubs(ctx, "g1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if hubs[0].NameTemplate != rooms.DefaultNameTemplate {
		t.Fatalf("template = %q, want default", hubs[0].NameTemplate)
	}
}
