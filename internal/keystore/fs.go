package keystore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	privateFileName = "ec_private.pem"
	publicFileName  = "ec_public.pem"
)

// FSStore keeps one subdirectory per period under a base directory:
//
//	<dir>/2026-08/ec_private.pem  (0600)
//	<dir>/2026-08/ec_public.pem   (0644)
//
// Loaded handles are cached in memory; key material never changes after
// creation so the cache needs no invalidation.
type FSStore struct {
	dir string

	mu     sync.Mutex
	loaded map[string]*Key
}

// NewFSStore creates the base directory if needed and returns the store.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("keystore: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: create %s: %w", dir, err)
	}
	return &FSStore{dir: dir, loaded: make(map[string]*Key)}, nil
}

// EnsurePeriodKey loads the period's keypair, generating and persisting a
// fresh one only if nothing exists yet. Concurrent callers (including other
// processes) race safely: the private key file is created with O_EXCL and
// the loser of the race loads the winner's material.
func (s *FSStore) EnsurePeriodKey(ctx context.Context, period string) (*Key, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("keystore: invalid period %q", period)
	}
	key, err := s.Load(ctx, period)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("keystore: generate key for %s: %w", period, err)
	}
	if err := s.persist(period, priv); err != nil {
		if errors.Is(err, fs.ErrExist) {
			// Another writer won; discard ours and load theirs.
			return s.Load(ctx, period)
		}
		return nil, err
	}

	key = &Key{Period: period, Private: priv, Public: &priv.PublicKey}
	s.mu.Lock()
	s.loaded[period] = key
	s.mu.Unlock()
	return key, nil
}

// Load returns the period's keypair or ErrKeyNotFound.
func (s *FSStore) Load(_ context.Context, period string) (*Key, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("keystore: invalid period %q: %w", period, ErrKeyNotFound)
	}
	s.mu.Lock()
	if key, ok := s.loaded[period]; ok {
		s.mu.Unlock()
		return key, nil
	}
	s.mu.Unlock()

	raw, err := os.ReadFile(filepath.Join(s.dir, period, privateFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("keystore: period %s: %w", period, ErrKeyNotFound)
		}
		return nil, fmt.Errorf("keystore: read %s: %w", period, err)
	}
	priv, err := decodePrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("keystore: decode %s: %w", period, err)
	}

	key := &Key{Period: period, Private: priv, Public: &priv.PublicKey}
	s.mu.Lock()
	s.loaded[period] = key
	s.mu.Unlock()
	return key, nil
}

// ListPeriods enumerates existing periods, most recent first. Entries that
// do not match the strict YYYY-MM naming are ignored, not errors.
func (s *FSStore) ListPeriods(context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("keystore: list %s: %w", s.dir, err)
	}
	var periods []string
	for _, entry := range entries {
		if !entry.IsDir() || !ValidPeriod(entry.Name()) {
			continue
		}
		periods = append(periods, entry.Name())
	}
	sort.Sort(sort.Reverse(sort.StringSlice(periods)))
	return periods, nil
}

func (s *FSStore) persist(period string, priv *ecdsa.PrivateKey) error {
	dir := filepath.Join(s.dir, period)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("keystore: create %s: %w", dir, err)
	}

	privDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return fmt.Errorf("keystore: marshal private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: privDER})

	// O_EXCL makes the private key file the creation lock for the period.
	f, err := os.OpenFile(filepath.Join(dir, privateFileName), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(privPEM); err != nil {
		f.Close()
		return fmt.Errorf("keystore: write private key: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("keystore: write private key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("keystore: marshal public key: %w", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	if err := os.WriteFile(filepath.Join(dir, publicFileName), pubPEM, 0o644); err != nil {
		return fmt.Errorf("keystore: write public key: %w", err)
	}
	return nil
}

func decodePrivateKey(raw []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	switch block.Type {
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, errors.New("not an EC private key")
		}
		return ecKey, nil
	default:
		return nil, fmt.Errorf("unsupported key type %s", block.Type)
	}
}
