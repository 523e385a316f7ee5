package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/passlock/go-passlock-server/repository"
	"github.com/passlock/go-passlock-server/types"
	"github.com/passlock/go-passlock-server/util"
)

// AccountService manages vault entries. Every sensitive field is encrypted
// before a write and decrypted after a read, gated per record by the
// isServerEncrypted flag so legacy plaintext records stay readable.
type AccountService struct {
	accountsRepo repository.Repository
	cipher       *util.Cipher
}

func NewAccountService(dbSelector repository.DBSelector, cipher *util.Cipher) *AccountService {
	db, err := dbSelector.ChooseDB(repository.Accounts)
	if err != nil {
		panic(err)
	}
	return &AccountService{accountsRepo: db, cipher: cipher}
}

func (s *AccountService) encryptAccount(account *types.Account) error {
	account.IsServerEncrypted = true
	return s.cipher.EncryptFields(account.SensitiveFields())
}

func (s *AccountService) decryptAccount(account *types.Account) error {
	if !account.IsServerEncrypted {
		return nil
	}
	return s.cipher.DecryptFields(account.SensitiveFields())
}

func (s *AccountService) ownerFilter(userID string) (map[string]interface{}, error) {
	encryptedUserID, err := s.cipher.Encrypt(userID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"user_id": encryptedUserID}, nil
}

// FindOne returns one vault entry owned by userID.
func (s *AccountService) FindOne(accountID, userID string) (*types.Account, error) {
	if userID == "" {
		return nil, types.NewServiceError("Invalid user", "Must provide a user uuid", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.ownerFilter(userID)
	if err != nil {
		return nil, err
	}
	filter["_id"] = accountID

	doc, err := s.accountsRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewServiceError("No account found", "No account found", http.StatusNotFound)
		}
		return nil, err
	}
	var account types.Account
	if err := repository.MapToObject(doc, &account); err != nil {
		return nil, err
	}
	if err := s.decryptAccount(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

// FindRecents returns the ten most recently opened entries.
func (s *AccountService) FindRecents(userID string) ([]*types.Account, error) {
	return s.findAccounts(userID, repository.FindOptions{
		Limit: 10,
		Sort:  map[string]int{"last_opened_date": -1},
	})
}

// Count returns the number of vault entries owned by userID.
func (s *AccountService) Count(userID string) (int64, error) {
	if userID == "" {
		return 0, types.NewServiceError("Invalid user", "Must provide a user uuid", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.ownerFilter(userID)
	if err != nil {
		return 0, err
	}
	return s.accountsRepo.Count(ctx, filter)
}

// FindAll returns one page of vault entries plus pagination refs.
func (s *AccountService) FindAll(userID string, limit, page int) (*types.AccountsPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 0 {
		page = 0
	}

	total, err := s.Count(userID)
	if err != nil {
		return nil, err
	}
	accounts, err := s.findAccounts(userID, repository.FindOptions{
		Limit: limit,
		Skip:  page * limit,
	})
	if err != nil {
		return nil, err
	}

	result := &types.AccountsPage{TotalAccounts: total, Accounts: accounts}
	if page > 0 {
		result.Previous = &types.PageRef{Page: page - 1, Limit: limit}
	}
	if int64((page+1)*limit) < total {
		result.Next = &types.PageRef{Page: page + 1, Limit: limit}
	}
	return result, nil
}

func (s *AccountService) findAccounts(userID string, opts repository.FindOptions) ([]*types.Account, error) {
	if userID == "" {
		return nil, types.NewServiceError("Invalid user", "Must provide a user uuid", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.ownerFilter(userID)
	if err != nil {
		return nil, err
	}
	docs, err := s.accountsRepo.FindAll(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	accounts := make([]*types.Account, 0, len(docs))
	for _, doc := range docs {
		var account types.Account
		if err := repository.MapToObject(doc, &account); err != nil {
			return nil, err
		}
		if err := s.decryptAccount(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	return accounts, nil
}

// Create inserts a new vault entry for userID, encrypted server side.
func (s *AccountService) Create(account *types.Account, userID string) (*types.Account, error) {
	if account == nil || userID == "" {
		return nil, types.NewServiceError("Invalid user input", "Must provide an account", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	account.UserID = userID
	if account.CreatedDate == "" {
		account.CreatedDate = time.Now().UTC().Format(time.RFC3339)
	}
	if err := s.encryptAccount(account); err != nil {
		return nil, err
	}
	id, err := s.accountsRepo.InsertOne(ctx, account)
	if err != nil {
		return nil, types.NewServiceError("Failed to create new account", err.Error(), http.StatusForbidden)
	}
	account.ID = id
	if err := s.decryptAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// Update replaces the stored entry accountID owned by userID.
func (s *AccountService) Update(accountID string, newValue *types.Account, userID string) (*types.Account, error) {
	if accountID == "" || newValue == nil || userID == "" {
		return nil, types.NewServiceError("Invalid user input", "Must provide an account", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	newValue.UserID = userID
	newValue.LastUpdateDate = time.Now().UTC().Format(time.RFC3339)
	if err := s.encryptAccount(newValue); err != nil {
		return nil, err
	}

	filter, err := s.ownerFilter(userID)
	if err != nil {
		return nil, err
	}
	filter["_id"] = accountID

	if err := s.accountsRepo.UpdateOne(ctx, filter, newValue); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.NewServiceError("No account found", "No account found", http.StatusNotFound)
		}
		return nil, types.NewServiceError("Failed to update account", err.Error(), http.StatusForbidden)
	}
	newValue.ID = accountID
	if err := s.decryptAccount(newValue); err != nil {
		return nil, err
	}
	return newValue, nil
}

// Remove deletes the entry accountID owned by userID.
func (s *AccountService) Remove(accountID, userID string) error {
	if accountID == "" || userID == "" {
		return types.NewServiceError("Invalid user input", "Must provide an account", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	filter, err := s.ownerFilter(userID)
	if err != nil {
		return err
	}
	filter["_id"] = accountID

	if err := s.accountsRepo.DeleteOne(ctx, filter); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.NewServiceError("No account found", "No account found", http.StatusNotFound)
		}
		return err
	}
	return nil
}

// EnableServerEncryption migrates legacy plaintext entries to encrypted form.
// Each account must carry its _id; entries are re-written one by one.
func (s *AccountService) EnableServerEncryption(userID string, accounts []*types.Account) ([]*types.Account, error) {
	if userID == "" {
		return nil, types.NewServiceError("Invalid user", "Must provide a user uuid", http.StatusBadRequest)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	for _, account := range accounts {
		if account.ID == "" {
			return nil, types.NewServiceError("Invalid account", "Must provide an account id", http.StatusBadRequest)
		}
		account.UserID = userID
		if err := s.encryptAccount(account); err != nil {
			return nil, err
		}
		filter := map[string]interface{}{"_id": account.ID, "user_id": account.UserID}
		if err := s.accountsRepo.UpdateOne(ctx, filter, account); err != nil {
			return nil, types.NewServiceError("Failed to enable server encryption", err.Error(), http.StatusForbidden)
		}
	}

	for _, account := range accounts {
		if err := s.decryptAccount(account); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}
