package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"linkshelf/internal/models"
	"linkshelf/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func runCLI(t *testing.T, db *gorm.DB, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(func(context.Context) (*adminApp, error) {
		return newAdminApp(db, &out), nil
	})
	root.SetArgs(args)
	root.SetOut(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func reload(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, id).Error)
	return u
}

func TestApprove(t *testing.T) {
	db := testutil.NewDB(t)
	pending := testutil.CreateUser(t, db, "pending", testutil.Unapproved)

	out, err := runCLI(t, db, "approve", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Approved pending")
	assert.True(t, reload(t, db, pending.ID).IsApproved)

	_, err = runCLI(t, db, "approve", "nobody")
	assert.Error(t, err)
}

func TestPremiumAndQuota(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")

	_, err := runCLI(t, db, "premium", "alice", "--days", "7")
	require.NoError(t, err)
	u := reload(t, db, alice.ID)
	assert.True(t, u.IsPremium)
	assert.Equal(t, models.PremiumTierMaxBookmarks, u.MaxBookmarks)
	require.NotNil(t, u.PremiumUntil)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), *u.PremiumUntil, time.Minute)

	_, err = runCLI(t, db, "quota", "alice", "250")
	require.NoError(t, err)
	assert.Equal(t, 250, reload(t, db, alice.ID).MaxBookmarks)

	_, err = runCLI(t, db, "quota", "alice", "-1")
	assert.Error(t, err)
	_, err = runCLI(t, db, "quota", "alice", "lots")
	assert.Error(t, err)

	out, err := runCLI(t, db, "premium", "alice", "--off")
	require.NoError(t, err)
	assert.Contains(t, out, "free tier")
	u = reload(t, db, alice.ID)
	assert.False(t, u.IsPremium)
	assert.Nil(t, u.PremiumUntil)
	assert.Equal(t, models.FreeTierMaxBookmarks, u.MaxBookmarks)
}

func TestPromoteDemoteListAdmins(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")

	out, err := runCLI(t, db, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "No admins found")

	_, err = runCLI(t, db, "promote", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, reload(t, db, alice.ID).Role)

	out, err = runCLI(t, db, "promote", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "already has role admin")

	out, err = runCLI(t, db, "list-admins")
	require.NoError(t, err)
	assert.Contains(t, out, "alice (ID:")

	_, err = runCLI(t, db, "demote", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, reload(t, db, alice.ID).Role)
}

func TestMaintenance(t *testing.T) {
	db := testutil.NewDB(t)
	lapsed := testutil.CreateUser(t, db, "lapsed", func(u *models.User) {
		past := time.Now().Add(-time.Hour)
		u.IsPremium = true
		u.PremiumUntil = &past
		u.MaxBookmarks = models.PremiumTierMaxBookmarks
	})
	b := testutil.CreateBookmark(t, db, lapsed, "drifted", true)
	require.NoError(t, db.Model(&models.Bookmark{}).Where("id = ?", b.ID).Update("favorite_count", 3).Error)
	require.NoError(t, db.Create(&models.Tag{Name: "orphan", Slug: "orphan"}).Error)

	out, err := runCLI(t, db, "reconcile-favorites")
	require.NoError(t, err)
	assert.Contains(t, out, "on 1 bookmark")

	out, err = runCLI(t, db, "prune-tags")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 1 orphan")

	out, err = runCLI(t, db, "expire-premium")
	require.NoError(t, err)
	assert.Contains(t, out, "Expired 1 premium")
	assert.False(t, reload(t, db, lapsed.ID).IsPremium)
}

func TestExport(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateBookmark(t, db, alice, "shared", true)
	testutil.CreateBookmark(t, db, alice, "secret", false)

	out, err := runCLI(t, db, "export")
	require.NoError(t, err)
	var snap struct {
		Users     []map[string]any `json:"users"`
		Bookmarks []map[string]any `json:"bookmarks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	require.Len(t, snap.Users, 1)
	assert.NotContains(t, snap.Users[0], "password")
	require.Len(t, snap.Bookmarks, 1)
	assert.Equal(t, "shared", snap.Bookmarks[0]["title"])

	out, err = runCLI(t, db, "export", "--format", "yaml")
	require.NoError(t, err)
	assert.NotContains(t, out, alice.Password)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "generatedAt")
	assert.Len(t, doc["bookmarks"], 1)

	_, err = runCLI(t, db, "export", "--format", "xml")
	assert.Error(t, err)
}
