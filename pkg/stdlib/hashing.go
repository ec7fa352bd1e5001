package stdlib

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"

	"sona/pkg/eval"
)

var hashingBridges = []registration{
	{"__native__sha256", 1, digest(sha256.New)},
	{"__native__sha512", 1, digest(sha512.New)},
	{"__native__sha3_256", 1, digest(sha3.New256)},
	{"__native__blake2b_256", 1, digest(newBlake2b256)},
}

// digest builds a bridge returning the lowercase hex digest of a string.
func digest(newHash func() hash.Hash) eval.NativeFunc {
	return func(args ...eval.Object) (eval.Object, error) {
		data, err := stringArg(args, 0, "data")
		if err != nil {
			return nil, err
		}
		h := newHash()
		h.Write([]byte(data))
		return eval.NewString(hex.EncodeToString(h.Sum(nil))), nil
	}
}

func newBlake2b256() hash.Hash {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	return h
}
