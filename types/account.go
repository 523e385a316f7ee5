package types

// Account is a vault entry. The fields returned by SensitiveFields are
// symmetrically encrypted before every write and decrypted after reads,
// gated by IsServerEncrypted so legacy plaintext records stay readable.
type Account struct {
	ID             string `json:"_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	Platform       string `json:"platform,omitempty"`
	Icon           string `json:"icon,omitempty"`
	Login          string `json:"login,omitempty"`
	Password       string `json:"password,omitempty"`
	PasswordClue   string `json:"password_clue,omitempty"`
	Tags           string `json:"tags,omitempty"`
	SocialLogin    string `json:"social_login,omitempty"`
	Description    string `json:"description,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CardNumber     string `json:"card_number,omitempty"`
	CardPin        string `json:"card_pin,omitempty"`
	CardExpiracy   string `json:"card_expiracy,omitempty"`
	CardCryptogram string `json:"card_cryptogram,omitempty"`
	TotpSecret     string `json:"totp_secret,omitempty"`

	IsServerEncrypted bool   `json:"isServerEncrypted"`
	CreatedDate       string `json:"created_date,omitempty"`
	LastUpdateDate    string `json:"last_update_date,omitempty"`
	LastOpenedDate    string `json:"last_opened_date,omitempty"`
}

// SensitiveFields lists the fields covered by server side field encryption,
// user_id included. Order is fixed; empty fields are skipped by the cipher
// helpers so a field is never left empty-but-flagged-encrypted.
func (a *Account) SensitiveFields() []*string {
	return []*string{
		&a.UserID,
		&a.Platform,
		&a.Icon,
		&a.Login,
		&a.Password,
		&a.PasswordClue,
		&a.Tags,
		&a.SocialLogin,
		&a.Description,
		&a.Notes,
		&a.CardNumber,
		&a.CardPin,
		&a.CardExpiracy,
		&a.CardCryptogram,
		&a.TotpSecret,
	}
}
