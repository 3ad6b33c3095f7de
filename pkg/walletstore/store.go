package walletstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sentinelbtc/sentineld/pkg/wallet"
)

var (
	// ErrNullPath ...
	ErrNullPath = errors.New("wallet file path must not be null")
	// ErrNullMnemonic ...
	ErrNullMnemonic = errors.New("mnemonic must not be null")
	// ErrWalletAlreadyExists ...
	ErrWalletAlreadyExists = errors.New("wallet file already exists")
	// ErrWalletNotFound ...
	ErrWalletNotFound = errors.New("wallet file not found")
)

// record is the on-disk layout of a wallet file. Only the mnemonic is
// encrypted, the network tag stays in clear so a wallet can be routed to the
// right chain before the passphrase is known.
type record struct {
	EncryptedMnemonic string `json:"encryptedMnemonic"`
	Network           string `json:"network"`
}

// SaveOpts is the struct given to the Save method
type SaveOpts struct {
	Path       string
	Mnemonic   []string
	Passphrase string
	Network    wallet.Network
}

func (o SaveOpts) validate() error {
	if len(o.Path) <= 0 {
		return ErrNullPath
	}
	if len(o.Mnemonic) <= 0 {
		return ErrNullMnemonic
	}
	if _, err := o.Network.ChainParams(); err != nil {
		return err
	}
	return nil
}

// Save encrypts the mnemonic with the passphrase and writes the wallet
// record to the given path. It refuses to overwrite an existing file and
// creates missing parent directories. The write is atomic, a prior valid
// file is never left corrupt by an interrupted write.
func Save(opts SaveOpts) error {
	if err := opts.validate(); err != nil {
		return err
	}

	if _, err := os.Stat(opts.Path); err == nil {
		return ErrWalletAlreadyExists
	} else if !os.IsNotExist(err) {
		return err
	}

	encryptedMnemonic, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  strings.Join(opts.Mnemonic, " "),
		Passphrase: opts.Passphrase,
	})
	if err != nil {
		return err
	}

	buf, err := json.Marshal(record{
		EncryptedMnemonic: encryptedMnemonic,
		Network:           opts.Network.String(),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return err
	}
	return writeFileAtomic(opts.Path, buf)
}

// LoadOpts is the struct given to the Load method
type LoadOpts struct {
	Path       string
	Passphrase string
}

func (o LoadOpts) validate() error {
	if len(o.Path) <= 0 {
		return ErrNullPath
	}
	return nil
}

// Load reads the wallet record at the given path and decrypts the mnemonic
// with the passphrase. A wrong passphrase or a corrupt record yields
// wallet.ErrDecryptionFailed, an unknown network tag yields
// wallet.ErrUnsupportedNetwork.
func Load(opts LoadOpts) ([]string, wallet.Network, error) {
	if err := opts.validate(); err != nil {
		return nil, "", err
	}

	buf, err := os.ReadFile(opts.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrWalletNotFound
		}
		return nil, "", err
	}

	var rec record
	if err := json.Unmarshal(buf, &rec); err != nil {
		return nil, "", wallet.ErrDecryptionFailed
	}

	mnemonic, err := wallet.Decrypt(wallet.DecryptOpts{
		CypherText: rec.EncryptedMnemonic,
		Passphrase: opts.Passphrase,
	})
	if err != nil {
		if err == wallet.ErrNullPassphrase {
			return nil, "", err
		}
		return nil, "", wallet.ErrDecryptionFailed
	}

	network, err := wallet.ParseNetwork(rec.Network)
	if err != nil {
		return nil, "", err
	}

	return strings.Split(mnemonic, " "), network, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over the destination.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
