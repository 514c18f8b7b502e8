package services

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"learnpath-backend-go/internal/models"
)

// Only the sha256 of a refresh token is stored.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func CreateSession(db *sqlx.DB, tokens TokenService, user models.User) (TokenPair, error) {
	sessionID := uuid.NewString()
	jwtID := uuid.NewString()
	refreshExpires := time.Now().UTC().Add(tokens.RefreshTTL)

	access, accessExp, err := tokens.CreateAccessToken(user.ID, user.Email, user.Role, sessionID, jwtID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := tokens.CreateRefreshToken(user.ID, sessionID, jwtID)
	if err != nil {
		return TokenPair{}, err
	}
	_, err = db.Exec(`
INSERT INTO user_sessions (id, user_id, jwt_id, refresh_hash, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, sessionID, user.ID, jwtID, hashRefreshToken(refresh), refreshExpires, time.Now().UTC())
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires,
		SessionID:        sessionID,
	}, nil
}

// RenewSession rotates both tokens. The presented refresh token must match
// the stored hash and jwt id of a live session; anything else revokes
// nothing and fails closed.
func RenewSession(db *sqlx.DB, tokens TokenService, refreshToken string) (TokenPair, error) {
	userID, sessionID, jwtID, err := tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, ErrUnauthorized("Authentication failed")
	}
	session := models.UserSession{}
	if err := db.Get(&session, `SELECT * FROM user_sessions WHERE id = $1`, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, ErrUnauthorized("Authentication failed")
		}
		return TokenPair{}, err
	}
	if session.ExpiresAt.Before(time.Now().UTC()) {
		_, _ = db.Exec(`DELETE FROM user_sessions WHERE id = $1`, sessionID)
		return TokenPair{}, ErrUnauthorized("Authentication failed")
	}
	if session.RefreshHash != hashRefreshToken(refreshToken) || session.JWTID != jwtID {
		return TokenPair{}, ErrUnauthorized("Authentication failed")
	}

	user := models.User{}
	if err := db.Get(&user, `SELECT * FROM users WHERE id = $1`, userID); err != nil {
		return TokenPair{}, ErrUnauthorized("Authentication failed")
	}

	newJWTID := uuid.NewString()
	access, accessExp, err := tokens.CreateAccessToken(user.ID, user.Email, user.Role, sessionID, newJWTID)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := tokens.CreateRefreshToken(user.ID, sessionID, newJWTID)
	if err != nil {
		return TokenPair{}, err
	}
	refreshExpires := time.Now().UTC().Add(tokens.RefreshTTL)
	_, err = db.Exec(`
UPDATE user_sessions SET jwt_id = $2, refresh_hash = $3, expires_at = $4 WHERE id = $1
`, sessionID, newJWTID, hashRefreshToken(refresh), refreshExpires)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExpires,
		SessionID:        sessionID,
	}, nil
}

// RevokeSessionByRefreshToken deletes the session a refresh token points
// at. Unknown sessions are a no-op; a token that does not match the stored
// hash is rejected.
func RevokeSessionByRefreshToken(db *sqlx.DB, tokens TokenService, refreshToken string) error {
	_, sessionID, jwtID, err := tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return ErrUnauthorized("Authentication failed")
	}
	session := models.UserSession{}
	if err := db.Get(&session, `SELECT * FROM user_sessions WHERE id = $1`, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if session.RefreshHash != hashRefreshToken(refreshToken) || session.JWTID != jwtID {
		return ErrUnauthorized("Authentication failed")
	}
	_, err = db.Exec(`DELETE FROM user_sessions WHERE id = $1`, sessionID)
	return err
}

func SetLastLogin(db *sqlx.DB, userID string) error {
	_, err := db.Exec(`UPDATE users SET last_login_at = $2 WHERE id = $1`, userID, time.Now().UTC())
	return err
}
