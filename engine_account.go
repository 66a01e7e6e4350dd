package authcore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Register creates an account with an argon2id credential hash. The attempt
// guard throttles the endpoint per identifier; a taken identifier counts as
// a failure so enumeration probes burn the same budget as wrong passwords.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (User, error) {
	if e == nil || e.users == nil {
		return User{}, ErrEngineNotReady
	}
	if req.Identifier == "" || req.Password == "" {
		return User{}, validationErr("identifier and password are required", nil)
	}

	key := "register:" + req.Identifier
	if err := e.guardAllow(ctx, key); err != nil {
		return User{}, err
	}

	hash, err := e.credentialHasher.Hash(req.Password)
	if err != nil {
		return User{}, unavailableErr("credential hashing failed", err)
	}

	user := User{
		ID:             uuid.NewString(),
		Identifier:     req.Identifier,
		CredentialHash: hash,
	}
	if err := e.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			e.guardFailure(ctx, key)
			e.emitAudit(ctx, "account.register", "", 0, false, ErrIdentifierTaken)
			return User{}, ErrIdentifierTaken
		}
		return User{}, e.storeErr(err)
	}

	e.guardSuccess(ctx, key)
	e.emitAudit(ctx, "account.register", user.ID, 0, true, nil)
	return user, nil
}

// ChangePassword swaps the credential hash after the old password verifies.
// Reusing the old password is rejected.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return validationErr("new password is required", nil)
	}

	err := e.withUser(ctx, userID, func(u *User) (bool, error) {
		ok, verr := e.credentialHasher.Verify(oldPassword, u.CredentialHash)
		if verr != nil {
			return false, unavailableErr("credential verification failed", verr)
		}
		if !ok {
			return false, ErrInvalidCredentials
		}
		if oldPassword == newPassword {
			return false, authzf("new password must differ from the old one")
		}

		hash, herr := e.credentialHasher.Hash(newPassword)
		if herr != nil {
			return false, unavailableErr("credential hashing failed", herr)
		}
		u.CredentialHash = hash
		return true, nil
	})
	e.emitAudit(ctx, "account.change_password", userID, 0, err == nil, err)
	return err
}
