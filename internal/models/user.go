package models

// User is an operator account. Credentials are never stored in plaintext;
// PasswordHash is a PHC-encoded Argon2id string. Users are created
// out-of-band (administrative) — the core only reads and updates them.
type User struct {
	UserID       string
	Username     string
	PasswordHash string
}
