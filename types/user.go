package types

// Passkey is a registered public key credential. Credential IDs are not
// secret, so passkeys are the one user field stored in the clear.
type Passkey struct {
	CredentialID string `json:"credentialId"`
	DisplayName  string `json:"displayName,omitempty"`
}

// User is the stored user document. Every sensitive scalar (email, uuid,
// password hash, TOTP secret, public encryption key) is encrypted with the
// server field cipher before persistence and decrypted exactly once on read.
// Filters on those fields are built from already encrypted values.
type User struct {
	ID                  string    `json:"_id,omitempty"`
	UUID                string    `json:"uuid"`
	Email               string    `json:"email"`
	Password            string    `json:"password,omitempty"` // salted one-way hash
	TotpSecret          string    `json:"totp_secret,omitempty"`
	PublicEncryptionKey string    `json:"public_encryption_key,omitempty"`
	AvatarURL           string    `json:"avatarUrl,omitempty"`
	IsMFAEnabled        bool      `json:"isMFAEnabled"`
	Passkeys            []Passkey `json:"passkeys,omitempty"`
	// last issued session token, stored so the server can invalidate it
	Token          string `json:"token,omitempty"`
	LastLoginDate  string `json:"last_login_date,omitempty"`
	LastUpdateDate string `json:"last_update_date,omitempty"`
	CreatedDate    string `json:"created_date,omitempty"`
}

// SensitiveFields lists the user scalars covered by field encryption.
func (u *User) SensitiveFields() []*string {
	return []*string{&u.Email, &u.UUID, &u.Password, &u.TotpSecret, &u.PublicEncryptionKey}
}

// HasPasskey reports whether at least one passkey is registered.
func (u *User) HasPasskey() bool {
	return len(u.Passkeys) > 0
}

// FindPasskey returns the registered passkey with the given credential ID.
func (u *User) FindPasskey(credentialID string) *Passkey {
	for i := range u.Passkeys {
		if u.Passkeys[i].CredentialID == credentialID {
			return &u.Passkeys[i]
		}
	}
	return nil
}
