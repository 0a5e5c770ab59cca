package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"tienda_perfumes/internal/config"
)

var ErrInvalidHash = errors.New("hash de mot de passe invalide")

const (
	argonKeyLen  = 32
	argonSaltLen = 16
)

// argonParams sont les paramètres Argon2id, écrits dans chaque hash pour qu'un
// changement de configuration n'invalide pas les mots de passe existants.
type argonParams struct {
	time    uint32
	memory  uint32
	threads uint8
}

// encode produit le format PHC : $argon2id$v=19$m=<KiB>,t=<iter>,p=<threads>$<sel>$<clé>
func (p argonParams) encode(salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func decodeHash(encoded string) (argonParams, []byte, []byte, error) {
	var p argonParams
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("%w: version argon2 %d", ErrInvalidHash, version)
	}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return p, nil, nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: sel: %v", ErrInvalidHash, err)
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, fmt.Errorf("%w: clé", ErrInvalidHash)
	}
	return p, salt, key, nil
}

// PasswordHasher hashe avec les paramètres Argon2id de la configuration et
// vérifie avec ceux enregistrés dans le hash.
type PasswordHasher struct {
	params argonParams
}

func NewPasswordHasher(cfg config.Argon2) *PasswordHasher {
	p := argonParams{time: cfg.Time, memory: cfg.MemoryKiB, threads: cfg.Threads}
	// zéro = valeur par défaut (configuration construite à la main, tests)
	if p.time == 0 {
		p.time = 1
	}
	if p.memory == 0 {
		p.memory = 32 * 1024
	}
	if p.threads == 0 {
		p.threads = 4
	}
	return &PasswordHasher{params: p}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.params.time, h.params.memory, h.params.threads, argonKeyLen)
	return h.params.encode(salt, key), nil
}

// Verify renvoie ErrInvalidHash si le hash stocké n'est pas un Argon2id lisible.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false, err
	}
	other := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, other) == 1, nil
}
