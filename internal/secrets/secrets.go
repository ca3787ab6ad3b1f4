// Package secrets stores warehouse passwords outside the project
// config: in the system keyring when one is available, otherwise in an
// encrypted file under the martforge dot-directory.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	keyring "github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"martforge/internal/common"
	"martforge/pkg/models"
)

const (
	keyringService   = "martforge"
	saltSize         = 32
	pbkdf2Iterations = 100000
	keySize          = 32
)

// Manager stores and retrieves per-target secrets.
type Manager struct {
	useKeyring bool
	masterKey  []byte
}

type secret struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Encrypted bool   `json:"encrypted"`
}

// NewManager creates a secrets manager, falling back to encrypted file
// storage when no keyring backend is usable.
func NewManager() (*Manager, error) {
	m := &Manager{useKeyring: keyringAvailable()}
	if !m.useKeyring {
		key, err := m.loadMasterKey()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize master key: %w", err)
		}
		m.masterKey = key
	}
	return m, nil
}

// Set stores the password for a target.
func (m *Manager) Set(targetName, password string) error {
	if m.useKeyring {
		if err := keyring.Set(keyringService, targetName, password); err != nil {
			return fmt.Errorf("failed to store in keyring: %w", err)
		}
		return nil
	}

	encrypted, err := m.encrypt(password)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret: %w", err)
	}
	return m.saveFile(targetName, &secret{Name: targetName, Value: encrypted, Encrypted: true})
}

// Get retrieves the password for a target.
func (m *Manager) Get(targetName string) (string, error) {
	if m.useKeyring {
		value, err := keyring.Get(keyringService, targetName)
		if err != nil {
			return "", fmt.Errorf("failed to get from keyring: %w", err)
		}
		return value, nil
	}

	s, err := m.loadFile(targetName)
	if err != nil {
		return "", err
	}
	if !s.Encrypted {
		return s.Value, nil
	}
	return m.decrypt(s.Value)
}

// Delete removes a stored password.
func (m *Manager) Delete(targetName string) error {
	if m.useKeyring {
		return keyring.Delete(keyringService, targetName)
	}
	return os.Remove(m.secretPath(targetName))
}

// List returns the target names with stored passwords (file backend
// only; the keyring does not support listing).
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.secretsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".secret") {
			names = append(names, strings.TrimSuffix(entry.Name(), ".secret"))
		}
	}
	return names, nil
}

// ResolvePassword finds the password for a target: an explicit config
// value wins, then MARTFORGE_PASSWORD_<NAME>, then the secret store.
func ResolvePassword(target *models.Target) string {
	if target.Password != "" {
		return target.Password
	}

	envKey := "MARTFORGE_PASSWORD_" + strings.ToUpper(strings.ReplaceAll(target.Name, "-", "_"))
	if v := os.Getenv(envKey); v != "" {
		return v
	}

	m, err := NewManager()
	if err != nil {
		return ""
	}
	value, err := m.Get(target.Name)
	if err != nil {
		return ""
	}
	return value
}

func (m *Manager) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(m.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (m *Manager) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(m.masterKey)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, encrypted := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, encrypted, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// loadMasterKey reads the existing master key or derives a fresh one
// from machine identity via PBKDF2.
func (m *Manager) loadMasterKey() ([]byte, error) {
	keyPath, err := common.ValidatePath(m.masterKeyPath(), m.secretsDir())
	if err != nil {
		return nil, fmt.Errorf("invalid master key path: %w", err)
	}

	if data, err := os.ReadFile(keyPath); err == nil {
		if len(data) != saltSize+keySize {
			return nil, fmt.Errorf("invalid master key file size")
		}
		return data[saltSize:], nil
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := pbkdf2.Key([]byte(machineID()), salt, pbkdf2Iterations, keySize, sha256.New)

	if err := os.MkdirAll(m.secretsDir(), 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath, append(salt, key...), 0600); err != nil {
		return nil, err
	}
	return key, nil
}

func (m *Manager) secretsDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".martforge", "secrets")
}

func (m *Manager) secretPath(name string) string {
	return filepath.Join(m.secretsDir(), name+".secret")
}

func (m *Manager) masterKeyPath() string {
	return filepath.Join(m.secretsDir(), ".master")
}

func (m *Manager) saveFile(name string, s *secret) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.secretsDir(), 0700); err != nil {
		return err
	}
	path, err := common.ValidatePath(m.secretPath(name), m.secretsDir())
	if err != nil {
		return fmt.Errorf("invalid secret path: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (m *Manager) loadFile(name string) (*secret, error) {
	path, err := common.ValidatePath(m.secretPath(name), m.secretsDir())
	if err != nil {
		return nil, fmt.Errorf("invalid secret path: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret not found for %s: %w", name, err)
	}
	var s secret
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse secret: %w", err)
	}
	return &s, nil
}

func keyringAvailable() bool {
	if os.Getenv("MARTFORGE_NO_KEYRING") != "" {
		return false
	}
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	default:
		// Probe for a usable backend; headless Linux often has none.
		probe := "martforge-probe"
		if err := keyring.Set(keyringService, probe, "probe"); err != nil {
			return false
		}
		_ = keyring.Delete(keyringService, probe)
		return true
	}
}

func machineID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%s-%s", hostname, runtime.GOOS, runtime.GOARCH)
}
