package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/passlock/go-passlock-server/repository"
	"github.com/passlock/go-passlock-server/util"
	"github.com/tj/assert"
)

func newActivityService(t *testing.T) (*ActivityService, *repository.MockRepository) {
	cipher, err := util.NewCipher(testKeyHex, testIVHex, testSalt)
	if err != nil {
		t.Fatal(err)
	}
	activities := repository.NewMockRepository(repository.UserActivities)
	selector := repository.NewSelector()
	selector.AddDB(activities)
	return NewActivityService(selector, cipher), activities
}

func TestActivityRecordAndList(t *testing.T) {
	svc, repo := newActivityService(t)

	svc.Record("user-1", "login", testClient)

	entries, err := svc.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, "user-1", entries[0].UUID)
	assert.Equal(t, "login", entries[0].Action)
	assert.Equal(t, testClient.Agent, entries[0].Agent)
	assert.Equal(t, testClient.IP, entries[0].IP)
	assert.NotEmpty(t, entries[0].ActivityDate)

	// the stored document carries ciphertext, not the plaintext action
	docs, err := repo.FindAll(context.Background(), map[string]interface{}{}, repository.FindOptions{})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, len(docs))
	assert.NotEqual(t, "login", docs[0]["action"])
	assert.NotEqual(t, "user-1", docs[0]["uuid"])
}

func TestActivityLogIsCapped(t *testing.T) {
	svc, _ := newActivityService(t)

	for i := 0; i < activityLogCap+5; i++ {
		svc.Record("user-1", fmt.Sprintf("login-%02d", i), testClient)
	}

	entries, err := svc.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, activityLogCap, len(entries))

	// the oldest entries were evicted first
	remaining := map[string]bool{}
	for _, entry := range entries {
		remaining[entry.Action] = true
	}
	assert.False(t, remaining["login-00"])
	assert.False(t, remaining["login-04"])
	assert.True(t, remaining["login-05"])
	assert.True(t, remaining["login-14"])
}

func TestActivityLogIsolatedPerUser(t *testing.T) {
	svc, _ := newActivityService(t)

	svc.Record("user-1", "login", testClient)
	svc.Record("user-2", "login", testClient)
	svc.Record("user-2", "login", testClient)

	entries, err := svc.List("user-1")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, len(entries))

	entries, err = svc.List("user-2")
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, len(entries))
}
