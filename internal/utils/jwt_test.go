package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "hostess", 1, time.Hour)
    require.NoError(t, err)

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    id, err := claims.UserID()
    require.NoError(t, err)
    assert.Equal(t, uint64(42), id)
    assert.Equal(t, "hostess", claims.Role)
    assert.Equal(t, uint64(1), claims.StadiumID)
}

func TestParseAccessToken_Rejects(t *testing.T) {
    good, err := NewAccessToken("s3cret", 42, "hostess", 1, time.Hour)
    require.NoError(t, err)
    expired, err := NewAccessToken("s3cret", 42, "hostess", 1, -time.Minute)
    require.NoError(t, err)
    none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42", "role": "super_admin"}).
        SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)

    for name, raw := range map[string]string{
        "wrong secret": good.Token,
        "expired":      expired.Token,
        "alg none":     none,
        "garbage":      "not.a.token",
    } {
        secret := "s3cret"
        if name == "wrong secret" {
            secret = "other"
        }
        _, err := ParseAccessToken(secret, raw)
        assert.ErrorIs(t, err, ErrInvalidToken, name)
    }
}

func TestUserID_InvalidSubject(t *testing.T) {
    _, err := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"}}.UserID()
    assert.Error(t, err)
}
