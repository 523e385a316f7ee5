package services

import (
	"context"
	"time"

	"github.com/go-kit/log/level"
	"github.com/passlock/go-passlock-server/global"
	"github.com/passlock/go-passlock-server/repository"
	"github.com/passlock/go-passlock-server/types"
	"github.com/passlock/go-passlock-server/util"
)

// activityLogCap bounds the retained entries per uuid; the oldest entry is
// evicted first once the cap is reached.
const activityLogCap = 10

// ActivityService appends login/usage events per identity. Writes are best
// effort: a logging failure is contained here and never aborts the login that
// triggered it.
type ActivityService struct {
	activityRepo repository.Repository
	cipher       *util.Cipher
}

func NewActivityService(dbSelector repository.DBSelector, cipher *util.Cipher) *ActivityService {
	db, err := dbSelector.ChooseDB(repository.UserActivities)
	if err != nil {
		panic(err)
	}
	return &ActivityService{activityRepo: db, cipher: cipher}
}

// Record appends an activity entry for uuid, evicting oldest-first beyond the
// cap. All free text fields are encrypted before the write. Errors are logged
// and swallowed.
func (as *ActivityService) Record(uuid string, action string, client types.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	encryptedUUID, err := as.cipher.Encrypt(uuid)
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to encrypt activity uuid", "error", err.Error())
		return
	}
	filter := map[string]interface{}{"uuid": encryptedUUID}

	count, err := as.activityRepo.Count(ctx, filter)
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to count activity entries", "error", err.Error())
		return
	}
	for count >= activityLogCap {
		if err := as.evictOldest(ctx, filter); err != nil {
			level.Error(global.Logger).Log("msg", "failed to evict activity entry", "error", err.Error())
			return
		}
		count--
	}

	entry := &types.ActivityLogEntry{
		UUID:         uuid,
		Action:       action,
		Agent:        client.Agent,
		Referer:      client.Referer,
		IP:           client.IP,
		ActivityDate: time.Now().UTC().Format(time.RFC3339),
	}
	if err := as.cipher.EncryptFields(entry.SensitiveFields()); err != nil {
		level.Error(global.Logger).Log("msg", "failed to encrypt activity entry", "error", err.Error())
		return
	}
	if _, err := as.activityRepo.InsertOne(ctx, entry); err != nil {
		level.Error(global.Logger).Log("msg", "failed to insert activity entry", "error", err.Error())
	}
}

func (as *ActivityService) evictOldest(ctx context.Context, filter map[string]interface{}) error {
	oldest, err := as.activityRepo.FindAll(ctx, filter, repository.FindOptions{
		Sort:  map[string]int{"activity_date": 1},
		Limit: 1,
	})
	if err != nil {
		return err
	}
	if len(oldest) == 0 {
		return nil
	}
	return as.activityRepo.DeleteOne(ctx, map[string]interface{}{"_id": oldest[0]["_id"]})
}

// List returns the retained entries for uuid, decrypted, oldest first.
func (as *ActivityService) List(uuid string) ([]*types.ActivityLogEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	encryptedUUID, err := as.cipher.Encrypt(uuid)
	if err != nil {
		return nil, err
	}
	docs, err := as.activityRepo.FindAll(ctx, map[string]interface{}{"uuid": encryptedUUID}, repository.FindOptions{
		Sort: map[string]int{"activity_date": 1},
	})
	if err != nil {
		return nil, err
	}
	entries := make([]*types.ActivityLogEntry, 0, len(docs))
	for _, doc := range docs {
		var entry types.ActivityLogEntry
		if err := repository.MapToObject(doc, &entry); err != nil {
			return nil, err
		}
		if err := as.cipher.DecryptFields(entry.SensitiveFields()); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}
