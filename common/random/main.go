package random

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// GetUUID generates a UUID and returns it as a string without hyphens.
// It uses github.com/google/uuid for UUID generation.
func GetUUID() string {
	code := uuid.New().String()
	code = strings.Replace(code, "-", "", -1)
	return code
}

// GetHexString returns n random bytes hex encoded (2n characters). Stream chunk
// identifiers use this; they only need to be collision-free within one stream.
func GetHexString(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}

const keyNumbers = "0123456789"

// GetRandomNumberString generates a random string of the specified length
// using only numeric characters (0-9).
func GetRandomNumberString(length int) string {
	key := make([]byte, length)
	for i := range length {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(keyNumbers))))
		if err != nil {
			panic(err)
		}
		key[i] = keyNumbers[n.Int64()]
	}
	return string(key)
}
