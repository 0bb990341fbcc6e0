package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"igfollow/pkg/storage"
)

const (
	// PassphraseEnv overrides the generated passphrase file
	PassphraseEnv = "IGFOLLOW_PASSPHRASE"

	sealedVersion  = 2
	saltSize       = 32
	keySize        = 32
	kdfIterations  = 100000
	passphraseFile = ".passphrase"
)

// sealedFile is the on-disk form of the store. Byte fields are base64 in JSON.
type sealedFile struct {
	Version    int       `json:"version"`
	Salt       []byte    `json:"salt"`
	Nonce      []byte    `json:"nonce"`
	Ciphertext []byte    `json:"ciphertext"`
	Modified   time.Time `json:"modified"`
}

// EncryptedFileStore keeps accounts in one AES-GCM sealed file. The key is
// derived with PBKDF2 from IGFOLLOW_PASSPHRASE or from a generated
// .passphrase file beside the store. Accounts are keyed by lower-case
// handle.
type EncryptedFileStore struct {
	path       string
	passphrase []byte

	mu sync.RWMutex

	keyMu   sync.Mutex
	keySalt []byte
	key     []byte
}

// NewEncryptedFileStore opens the store at path, creating its directory and
// passphrase file if needed.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	passphrase, err := loadPassphrase(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return &EncryptedFileStore{path: path, passphrase: []byte(passphrase)}, nil
}

func accountKey(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

func (e *EncryptedFileStore) Store(account *Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, salt, err := e.read()
	if err != nil {
		return err
	}
	accounts[accountKey(account.Username)] = *account
	return e.write(accounts, salt)
}

func (e *EncryptedFileStore) Retrieve(username string) (*Account, error) {
	key := accountKey(username)
	if key == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, _, err := e.read()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[key]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns the stored accounts ordered by handle
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, _, err := e.read()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(accounts))
	for key := range accounts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]*Account, 0, len(keys))
	for _, key := range keys {
		account := accounts[key]
		out = append(out, &account)
	}
	return out, nil
}

// Delete removes an account. Removing the last one removes the file.
func (e *EncryptedFileStore) Delete(username string) error {
	key := accountKey(username)
	if key == "" {
		return ErrInvalidCredentials
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, salt, err := e.read()
	if err != nil {
		return err
	}
	if _, ok := accounts[key]; !ok {
		return ErrCredentialsNotFound
	}
	delete(accounts, key)

	if len(accounts) == 0 {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove credentials file: %w", err)
		}
		return nil
	}
	return e.write(accounts, salt)
}

func (e *EncryptedFileStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}

// read opens the sealed file. A missing file is an empty store with no salt.
func (e *EncryptedFileStore) read() (map[string]Account, []byte, error) {
	content, err := os.ReadFile(e.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Account{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var sealed sealedFile
	if err := json.Unmarshal(content, &sealed); err != nil {
		return nil, nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if sealed.Version != sealedVersion {
		return nil, nil, fmt.Errorf("unsupported credentials file version %d", sealed.Version)
	}

	plaintext, err := e.open(&sealed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt data: %w", err)
	}

	var accounts map[string]Account
	if err := json.Unmarshal(plaintext, &accounts); err != nil {
		return nil, nil, fmt.Errorf("failed to parse accounts: %w", err)
	}
	if accounts == nil {
		accounts = map[string]Account{}
	}
	for key, account := range accounts {
		if err := account.Validate(); err != nil {
			return nil, nil, fmt.Errorf("stored account %q: %w", key, err)
		}
	}
	return accounts, sealed.Salt, nil
}

// write seals accounts under salt, generating a salt for a new file
func (e *EncryptedFileStore) write(accounts map[string]Account, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	plaintext, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	sealed, err := e.seal(plaintext, salt)
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	content, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials file: %w", err)
	}
	if err := storage.WriteBytesAtomic(e.path, content, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) seal(plaintext, salt []byte) (*sealedFile, error) {
	aead, err := e.aead(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return &sealedFile{
		Version:    sealedVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, salt),
		Modified:   time.Now().UTC(),
	}, nil
}

func (e *EncryptedFileStore) open(sealed *sealedFile) ([]byte, error) {
	aead, err := e.aead(sealed.Salt)
	if err != nil {
		return nil, err
	}
	if len(sealed.Nonce) != aead.NonceSize() {
		return nil, errors.New("invalid nonce")
	}
	return aead.Open(nil, sealed.Nonce, sealed.Ciphertext, sealed.Salt)
}

// aead returns the AES-GCM cipher for salt. The derived key is cached for
// the last salt seen since a file keeps its salt across writes.
func (e *EncryptedFileStore) aead(salt []byte) (cipher.AEAD, error) {
	if len(salt) == 0 {
		return nil, errors.New("missing salt")
	}

	e.keyMu.Lock()
	defer e.keyMu.Unlock()
	if e.key == nil || !bytes.Equal(e.keySalt, salt) {
		e.key = pbkdf2.Key(e.passphrase, salt, kdfIterations, keySize, sha256.New)
		e.keySalt = append([]byte(nil), salt...)
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// loadPassphrase returns IGFOLLOW_PASSPHRASE, or the contents of the
// passphrase file in dir, generating that file on first use.
func loadPassphrase(dir string) (string, error) {
	if pass := os.Getenv(PassphraseEnv); pass != "" {
		return pass, nil
	}

	path := filepath.Join(dir, passphraseFile)
	if content, err := os.ReadFile(path); err == nil && len(bytes.TrimSpace(content)) > 0 {
		return string(bytes.TrimSpace(content)), nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	passphrase := base64.RawURLEncoding.EncodeToString(raw)
	if err := storage.WriteBytesAtomic(path, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}
