package storage

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/go-oidfed/certledger/storage/model"
)

// UsersStorage returns the model.UsersStore of this Storage
func (s *Storage) UsersStorage() *UsersStorage {
	return &UsersStorage{db: s.db, params: s.userParams}
}

// UsersStorage keeps the admin users and the ledger accounts they act as
type UsersStorage struct {
	db     *gorm.DB
	params Argon2idParams
}

// withoutHashes clears the password hashes so users can be handed out
func withoutHashes(users []model.User) []model.User {
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users
}

func (s *UsersStorage) find(username string) (*model.User, error) {
	var u model.User
	err := s.db.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.NotFoundErrorFmt("user not found: %s", username)
	}
	return &u, err
}

// Count implements the model.UsersStore interface
func (s *UsersStorage) Count() (count int64, err error) {
	err = s.db.Model(&model.User{}).Count(&count).Error
	return
}

// List implements the model.UsersStore interface
func (s *UsersStorage) List() ([]model.User, error) {
	var users []model.User
	if err := s.db.Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return withoutHashes(users), nil
}

// ListByAccount implements the model.UsersStore interface
func (s *UsersStorage) ListByAccount(account model.Account) ([]model.User, error) {
	var users []model.User
	if err := s.db.Where("account = ?", account.Hex()).Order("username").Find(&users).Error; err != nil {
		return nil, err
	}
	return withoutHashes(users), nil
}

// Get implements the model.UsersStore interface
func (s *UsersStorage) Get(username string) (*model.User, error) {
	u, err := s.find(username)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Create implements the model.UsersStore interface. Users must act as a
// non-null account.
func (s *UsersStorage) Create(username, password, displayName string, account model.Account) (*model.User, error) {
	switch {
	case username == "" || password == "":
		return nil, model.ValidationError("username and password are required")
	case account == model.NullAccount:
		return nil, model.ValidationError("account is required")
	}
	hash, err := newPasswordHash(password, s.params)
	if err != nil {
		return nil, err
	}
	u := model.User{
		Username:     username,
		PasswordHash: hash.String(),
		DisplayName:  displayName,
		Account:      account.Hex(),
	}
	if err = s.db.Create(&u).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, model.AlreadyExistsErrorFmt("user already exists: %s", username)
		}
		return nil, err
	}
	u.PasswordHash = ""
	return &u, nil
}

// Update implements the model.UsersStore interface
func (s *UsersStorage) Update(username string, upd model.UserUpdate) (*model.User, error) {
	u, err := s.find(username)
	if err != nil {
		return nil, err
	}
	changes := map[string]any{}
	if upd.DisplayName != nil {
		changes["display_name"] = *upd.DisplayName
	}
	if upd.Disabled != nil {
		changes["disabled"] = *upd.Disabled
	}
	if upd.Account != nil {
		if *upd.Account == model.NullAccount {
			return nil, model.ValidationError("account cannot be the null account")
		}
		changes["account"] = upd.Account.Hex()
	}
	if upd.Password != nil {
		if *upd.Password == "" {
			return nil, model.ValidationError("password cannot be empty")
		}
		hash, err := newPasswordHash(*upd.Password, s.params)
		if err != nil {
			return nil, err
		}
		changes["password_hash"] = hash.String()
	}
	if len(changes) > 0 {
		if err = s.db.Model(u).Updates(changes).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(username)
}

// Delete implements the model.UsersStore interface
func (s *UsersStorage) Delete(username string) error {
	res := s.db.Where("username = ?", username).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFoundErrorFmt("user not found: %s", username)
	}
	return nil
}

// Authenticate implements the model.UsersStore interface. A hash derived
// with outdated parameters is replaced after a successful login.
func (s *UsersStorage) Authenticate(username, password string) (model.Account, error) {
	u, err := s.find(username)
	if err != nil {
		return model.NullAccount, err
	}
	if u.Disabled {
		return model.NullAccount, model.AuthorizationErrorFmt("user disabled: %s", username)
	}
	hash, err := parsePasswordHash(u.PasswordHash)
	if err != nil || !hash.matches(password) {
		return model.NullAccount, model.AuthorizationError("invalid credentials")
	}
	account, err := model.ParseAccount(u.Account)
	if err != nil {
		return model.NullAccount, errors.Wrapf(err, "user %s has no valid account", username)
	}
	if hash.outdated(s.params) {
		if fresh, err := newPasswordHash(password, s.params); err == nil {
			if err = s.db.Model(u).Update("password_hash", fresh.String()).Error; err != nil {
				log.WithError(err).WithField("user", username).Warn("could not rehash password")
			}
		}
	}
	return account, nil
}
