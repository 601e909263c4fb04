package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{url: "https://github.com/me/decks.git", expected: filepath.Join("repos", "github.com", "me", "decks")},
		{url: "https://gitlab.com/group/sub/spanish", expected: filepath.Join("repos", "gitlab.com", "group", "sub", "spanish")},
		{url: "git@github.com:me/decks.git", expected: filepath.Join("repos", "github.com", "me", "decks")},
		{url: "https://github.com/", wantErr: true},
		{url: "https://github.com/../../etc", wantErr: true},
		{url: "not a url", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected an error, but got path '%s'", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LocalPath() returned an unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestIsURL(t *testing.T) {
	for _, s := range []string{"https://github.com/me/decks", "git@github.com:me/decks.git", "/srv/decks.git"} {
		if !IsURL(s) {
			t.Errorf("Expected %q to be a git URL", s)
		}
	}
	for _, s := range []string{"decks", "./decks/spanish.md", "/home/me/words.xlsx"} {
		if IsURL(s) {
			t.Errorf("Expected %q to be a local path", s)
		}
	}
}

func TestSyncClonesThenPulls(t *testing.T) {
	ctx := context.Background()
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	if err != nil {
		t.Fatalf("PlainInit() returned an unexpected error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(origin, "deck.md"), []byte("F: hola\nB: hello\n"), 0o644); err != nil {
		t.Fatalf("Failed to write deck: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() returned an unexpected error: %v", err)
	}
	if _, err := wt.Add("deck.md"); err != nil {
		t.Fatalf("Add() returned an unexpected error: %v", err)
	}
	_, err = wt.Commit("add deck", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit() returned an unexpected error: %v", err)
	}

	checkout := filepath.Join(t.TempDir(), "checkout")
	if err := Sync(ctx, origin, checkout); err != nil {
		t.Fatalf("Sync() clone returned an unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(checkout, "deck.md")); err != nil {
		t.Errorf("Expected deck.md in the checkout: %v", err)
	}

	if err := Sync(ctx, origin, checkout); err != nil {
		t.Errorf("Sync() of an up-to-date checkout returned an unexpected error: %v", err)
	}
}
