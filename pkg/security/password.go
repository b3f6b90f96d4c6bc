package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/angelmondragon/roasapp-backend/pkg/config"
)

const tempPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// ErrInvalidHash means the stored value is not a PHC formatted argon2id hash.
var ErrInvalidHash = errors.New("invalid argon2id hash")

// argonCost is the tuning encoded into every hash string.
type argonCost struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

func costFromConfig(cfg config.PasswordConfig) argonCost {
	return argonCost{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}
}

func (c argonCost) key(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, c.time, c.memory, c.threads, c.keyLen)
}

// HashPassword derives an argon2id key and returns it as
// $argon2id$v=19$m=<kb>,t=<passes>,p=<threads>$<salt>$<key>.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	cost := costFromConfig(cfg)
	salt := make([]byte, cost.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, cost.memory, cost.time, cost.threads,
		b64.EncodeToString(salt), b64.EncodeToString(cost.key(password, salt))), nil
}

// VerifyPassword reports whether password matches encoded. It errors only on malformed hashes.
func VerifyPassword(password, encoded string) (bool, error) {
	cost, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, cost.key(password, salt)) == 1, nil
}

// NeedsRehash reports whether encoded was produced with a cost other than the configured one.
func NeedsRehash(encoded string, cfg config.PasswordConfig) bool {
	cost, _, _, err := parseHash(encoded)
	return err != nil || cost != costFromConfig(cfg)
}

func parseHash(encoded string) (argonCost, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	var cost argonCost
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &cost.memory, &cost.time, &cost.threads); err != nil {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return argonCost{}, nil, nil, ErrInvalidHash
	}
	cost.saltLen, cost.keyLen = uint32(len(salt)), uint32(len(key))
	return cost, salt, key, nil
}

// GenerateTempPassword returns length characters drawn uniformly from an alphabet without
// look-alike glyphs.
func GenerateTempPassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	size := big.NewInt(int64(len(tempPasswordAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("random index: %w", err)
		}
		b.WriteByte(tempPasswordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
