package storage

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// Argon2idParams configures how admin user passwords are hashed
type Argon2idParams struct {
	Time        uint32 `yaml:"time"`
	MemoryKiB   uint32 `yaml:"memory_kib"`
	Parallelism uint8  `yaml:"parallelism"`
	KeyLen      uint32 `yaml:"key_len"`
	SaltLen     uint32 `yaml:"salt_len"`
}

func (p Argon2idParams) orDefault() Argon2idParams {
	if p.Time == 0 {
		return Argon2idParams{
			Time:        1,
			MemoryKiB:   64 * 1024,
			Parallelism: 4,
			KeyLen:      32,
			SaltLen:     16,
		}
	}
	return p
}

const argon2idPrefix = "$argon2id$v=19$"

// passwordHash is an argon2id digest together with the parameters it was
// derived with. Its string form is the PHC format
// $argon2id$v=19$m=<kib>,t=<time>,p=<threads>$<salt>$<key>
type passwordHash struct {
	params Argon2idParams
	salt   []byte
	key    []byte
}

func newPasswordHash(password string, params Argon2idParams) (passwordHash, error) {
	params = params.orDefault()
	h := passwordHash{
		params: params,
		salt:   make([]byte, params.SaltLen),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return h, errors.Wrap(err, "could not generate salt")
	}
	h.key = h.derive(password)
	return h, nil
}

func parsePasswordHash(encoded string) (h passwordHash, err error) {
	rest, ok := strings.CutPrefix(encoded, argon2idPrefix)
	if !ok {
		return h, errors.New("unsupported password hash format")
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return h, errors.New("malformed argon2id hash")
	}
	if _, err = fmt.Sscanf(
		fields[0], "m=%d,t=%d,p=%d", &h.params.MemoryKiB, &h.params.Time, &h.params.Parallelism,
	); err != nil {
		return h, errors.Wrap(err, "malformed argon2id parameters")
	}
	if h.salt, err = base64.RawStdEncoding.DecodeString(fields[1]); err != nil {
		return h, errors.Wrap(err, "malformed argon2id salt")
	}
	if h.key, err = base64.RawStdEncoding.DecodeString(fields[2]); err != nil {
		return h, errors.Wrap(err, "malformed argon2id key")
	}
	h.params.SaltLen = uint32(len(h.salt))
	h.params.KeyLen = uint32(len(h.key))
	return h, nil
}

func (h passwordHash) derive(password string) []byte {
	return argon2.IDKey(
		[]byte(password), h.salt, h.params.Time, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLen,
	)
}

func (h passwordHash) matches(password string) bool {
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1
}

// outdated reports whether h was derived with other parameters than params
func (h passwordHash) outdated(params Argon2idParams) bool {
	return h.params != params.orDefault()
}

func (h passwordHash) String() string {
	return fmt.Sprintf(
		"%sm=%d,t=%d,p=%d$%s$%s", argon2idPrefix,
		h.params.MemoryKiB, h.params.Time, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(h.salt),
		base64.RawStdEncoding.EncodeToString(h.key),
	)
}
