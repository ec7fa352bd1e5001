package stdlib

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"sona/pkg/eval"
)

var authBridges = []registration{
	{"__native__bcrypt_hash", -1, bcryptHash},
	{"__native__bcrypt_verify", 2, bcryptVerify},
}

var jwtBridges = []registration{
	{"__native__jwt_sign", 3, jwtSign},
	{"__native__jwt_verify", 2, jwtVerify},
}

// bcryptHash(password, cost?)
func bcryptHash(args ...eval.Object) (eval.Object, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, fmt.Errorf("expected password and optional cost, got %d arguments", len(args))
	}
	password, err := stringArg(args, 0, "password")
	if err != nil {
		return nil, err
	}
	cost := int64(bcrypt.DefaultCost)
	if len(args) == 2 {
		if cost, err = intArg(args, 1, "cost"); err != nil {
			return nil, err
		}
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), int(cost))
	if err != nil {
		return nil, err
	}
	return eval.NewString(string(hashed)), nil
}

func bcryptVerify(args ...eval.Object) (eval.Object, error) {
	hashed, err := stringArg(args, 0, "hash")
	if err != nil {
		return nil, err
	}
	password, err := stringArg(args, 1, "password")
	if err != nil {
		return nil, err
	}
	err = bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	return eval.NewBoolean(err == nil), nil
}

// jwtSign(claims, secret, expires_in) signs claims with HS256. expires_in
// is a Go duration such as "1h"; it sets the exp claim.
func jwtSign(args ...eval.Object) (eval.Object, error) {
	payload, err := dictArg(args, 0, "claims")
	if err != nil {
		return nil, err
	}
	secret, err := stringArg(args, 1, "secret")
	if err != nil {
		return nil, err
	}
	expiresIn, err := stringArg(args, 2, "expires_in")
	if err != nil {
		return nil, err
	}
	duration, err := time.ParseDuration(expiresIn)
	if err != nil {
		return nil, fmt.Errorf("invalid duration: %v", err)
	}

	claims := jwt.MapClaims{}
	for k, v := range eval.ToNative(payload).(map[string]interface{}) {
		claims[k] = v
	}
	claims["exp"] = time.Now().Add(duration).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}
	return eval.NewString(signed), nil
}

// jwtVerify(token, secret) returns the claims of a valid token and null
// for an invalid or expired one.
func jwtVerify(args ...eval.Object) (eval.Object, error) {
	tokenString, err := stringArg(args, 0, "token")
	if err != nil {
		return nil, err
	}
	secret, err := stringArg(args, 1, "secret")
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return eval.NULL, nil
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return eval.NULL, nil
	}
	return eval.FromNative(map[string]interface{}(claims)), nil
}
