package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AnshRaj112/skillswap-backend/internal/models"
	"github.com/AnshRaj112/skillswap-backend/internal/reconciler"
)

func TestPeerOf(t *testing.T) {
	assert.Equal(t, "uidB", peerOf("uidA_uidB", "uidA"))
	assert.Equal(t, "uidA", peerOf("uidA_uidB", "uidB"))
	assert.Equal(t, "garbage", peerOf("garbage", "uidA"))
}

func TestTranscriptPrintsEachMessageOnce(t *testing.T) {
	var buf bytes.Buffer
	tr := &transcript{w: &buf, me: "uidA"}
	at := time.Date(2026, 1, 2, 15, 4, 0, 0, time.Local)

	first := []*models.ChatMessage{
		{Seq: 1, SenderID: "uidA", SenderName: "Ana", Text: "hi", CreatedAt: at},
	}
	tr.render(first)
	tr.render(append(first, &models.ChatMessage{Seq: 2, SenderID: "uidB", SenderName: "Bo", Text: "hey", CreatedAt: at}))
	tr.render(first)

	assert.Equal(t, "[3:04PM] you: hi\n[3:04PM] Bo: hey\n", buf.String())
}

func TestPrintUsers(t *testing.T) {
	var buf bytes.Buffer
	printUsers(&buf, nil)
	assert.Equal(t, "No users found\n", buf.String())

	buf.Reset()
	printUsers(&buf, []*models.User{{Name: "Bo", ProviderID: "uidB", TeachSkills: []string{"go", "sql"}, Rating: 4.5}})
	assert.Contains(t, buf.String(), "uidB")
	assert.Contains(t, buf.String(), "go, sql")
	assert.Contains(t, buf.String(), "4.5")
}

func TestPrintIdentityMarksProviderProfiles(t *testing.T) {
	var buf bytes.Buffer
	printIdentity(&buf, reconciler.MinimalIdentity(reconciler.ProviderUser{UID: "uidA", DisplayName: "Ana"}))
	assert.Contains(t, buf.String(), "Chat ID: uidA")
	assert.Contains(t, buf.String(), "not yet confirmed")
}
