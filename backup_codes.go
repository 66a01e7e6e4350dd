package authcore

import (
	"crypto/rand"
	"strings"
)

// Alphabet avoids 0/O and 1/I so codes survive being read aloud or retyped.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newBackupCode(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(length)
	for _, b := range raw {
		sb.WriteByte(backupCodeAlphabet[int(b)%len(backupCodeAlphabet)])
	}
	return sb.String(), nil
}

// formatBackupCode inserts a hyphen in the middle for display. The stored
// hash is always of the canonical form.
func formatBackupCode(code string) string {
	if len(code) < 4 {
		return code
	}
	mid := len(code) / 2
	return code[:mid] + "-" + code[mid:]
}

// canonicalizeBackupCode normalizes user input: case-insensitive, hyphens
// and spaces ignored.
func canonicalizeBackupCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "-", "")
	return strings.ReplaceAll(code, " ", "")
}

// newBackupCodes mints a fresh batch: the plaintext batch is returned to the
// caller exactly once, only the argon2 hashes are ever stored.
func (e *Engine) newBackupCodes() (plain []string, hashes []string, err error) {
	count := e.config.MFA.BackupCodeCount
	plain = make([]string, 0, count)
	hashes = make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := newBackupCode(e.config.MFA.BackupCodeLength)
		if err != nil {
			return nil, nil, unavailableErr("backup code generation failed", err)
		}
		hash, err := e.backupHasher.Hash(code)
		if err != nil {
			return nil, nil, unavailableErr("backup code hashing failed", err)
		}
		plain = append(plain, formatBackupCode(code))
		hashes = append(hashes, hash)
	}
	return plain, hashes, nil
}

// consumeBackupCode checks code against the stored hash set and, on match,
// removes that single hash. Each code is usable at most once.
func (e *Engine) consumeBackupCode(u *User, code string) (remaining int, matched bool, err error) {
	canonical := canonicalizeBackupCode(code)
	if canonical == "" {
		return len(u.MFA.BackupCodes), false, nil
	}
	for i, hash := range u.MFA.BackupCodes {
		ok, verr := e.backupHasher.Verify(canonical, hash)
		if verr != nil {
			return len(u.MFA.BackupCodes), false, unavailableErr("backup code verification failed", verr)
		}
		if ok {
			u.MFA.BackupCodes = append(u.MFA.BackupCodes[:i], u.MFA.BackupCodes[i+1:]...)
			return len(u.MFA.BackupCodes), true, nil
		}
	}
	return len(u.MFA.BackupCodes), false, nil
}
