package walletstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelbtc/sentineld/pkg/wallet"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets", "wallet.json")
	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{})
	require.NoError(t, err)

	err = Save(SaveOpts{
		Path:       path,
		Mnemonic:   mnemonic,
		Passphrase: "p@ss",
		Network:    wallet.TestNet,
	})
	require.NoError(t, err)

	loadedMnemonic, network, err := Load(LoadOpts{
		Path:       path,
		Passphrase: "p@ss",
	})
	require.NoError(t, err)
	assert.Equal(t, mnemonic, loadedMnemonic)
	assert.Equal(t, wallet.TestNet, network)
}

func TestLoadWithWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{})
	require.NoError(t, err)

	err = Save(SaveOpts{
		Path:       path,
		Mnemonic:   mnemonic,
		Passphrase: "p@ss",
		Network:    wallet.MainNet,
	})
	require.NoError(t, err)

	_, _, err = Load(LoadOpts{Path: path, Passphrase: "wrong"})
	assert.Equal(t, wallet.ErrDecryptionFailed, err)
}

func TestSaveRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{})
	require.NoError(t, err)

	opts := SaveOpts{
		Path:       path,
		Mnemonic:   mnemonic,
		Passphrase: "p@ss",
		Network:    wallet.TestNet,
	}
	require.NoError(t, Save(opts))

	original, err := os.ReadFile(path)
	require.NoError(t, err)

	err = Save(opts)
	assert.Equal(t, ErrWalletAlreadyExists, err)

	untouched, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, untouched)
}

func TestCreateSaveReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")

	w, err := wallet.NewWallet(wallet.NewWalletOpts{
		Passphrase: "p@ss",
		Network:    wallet.TestNet,
	})
	require.NoError(t, err)

	network, err := w.Network()
	require.NoError(t, err)
	assert.Equal(t, wallet.TestNet, network)

	xprv, err := w.ExtendedPrivateKey()
	require.NoError(t, err)
	xpub, err := w.ExtendedPublicKey()
	require.NoError(t, err)
	assert.NotEqual(t, xprv, xpub)

	mnemonic, err := w.Mnemonic()
	require.NoError(t, err)
	require.NoError(t, Save(SaveOpts{
		Path:       path,
		Mnemonic:   mnemonic,
		Passphrase: "p@ss",
		Network:    network,
	}))

	loadedMnemonic, loadedNetwork, err := Load(LoadOpts{
		Path:       path,
		Passphrase: "p@ss",
	})
	require.NoError(t, err)

	recovered, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic:   loadedMnemonic,
		Passphrase: "p@ss",
		Network:    loadedNetwork,
	})
	require.NoError(t, err)

	recoveredXprv, err := recovered.ExtendedPrivateKey()
	require.NoError(t, err)
	assert.Equal(t, xprv, recoveredXprv)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(LoadOpts{
		Path:       filepath.Join(t.TempDir(), "nope.json"),
		Passphrase: "p@ss",
	})
	assert.Equal(t, ErrWalletNotFound, err)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, []byte("not a wallet"), 0600))

	_, _, err := Load(LoadOpts{Path: path, Passphrase: "p@ss"})
	assert.Equal(t, wallet.ErrDecryptionFailed, err)
}

func TestLoadUnknownNetwork(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.json")
	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{})
	require.NoError(t, err)

	require.NoError(t, Save(SaveOpts{
		Path:       path,
		Mnemonic:   mnemonic,
		Passphrase: "p@ss",
		Network:    wallet.TestNet,
	}))

	// rewrite the record with a bogus network tag, keeping the valid cypher.
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(buf), "TestNet", "LiteNet", 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0600))

	_, _, err = Load(LoadOpts{Path: path, Passphrase: "p@ss"})
	assert.Equal(t, wallet.ErrUnsupportedNetwork, err)
}
