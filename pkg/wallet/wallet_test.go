package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	w, err := NewWallet(NewWalletOpts{
		Passphrase: "p@ss",
		Network:    TestNet,
	})
	require.NoError(t, err)

	mnemonic, err := w.Mnemonic()
	require.NoError(t, err)
	assert.Len(t, mnemonic, 12)

	network, err := w.Network()
	require.NoError(t, err)
	assert.Equal(t, TestNet, network)

	xprv, err := w.ExtendedPrivateKey()
	require.NoError(t, err)
	xpub, err := w.ExtendedPublicKey()
	require.NoError(t, err)
	assert.NotEqual(t, xprv, xpub)
	assert.True(t, strings.HasPrefix(xpub, "tpub"))
	assert.True(t, strings.HasPrefix(xprv, "tprv"))
}

func TestNewWalletFromMnemonic(t *testing.T) {
	original, err := NewWallet(NewWalletOpts{
		Passphrase: "p@ss",
		Network:    MainNet,
	})
	require.NoError(t, err)
	mnemonic, err := original.Mnemonic()
	require.NoError(t, err)
	originalXprv, err := original.ExtendedPrivateKey()
	require.NoError(t, err)

	recovered, err := NewWalletFromMnemonic(NewWalletFromMnemonicOpts{
		Mnemonic:   mnemonic,
		Passphrase: "p@ss",
		Network:    MainNet,
	})
	require.NoError(t, err)

	recoveredXprv, err := recovered.ExtendedPrivateKey()
	require.NoError(t, err)
	assert.Equal(t, originalXprv, recoveredXprv)
}

func TestFailingNewWallet(t *testing.T) {
	tests := []struct {
		opts NewWalletOpts
		err  error
	}{
		{
			opts: NewWalletOpts{Passphrase: "p@ss"},
			err:  ErrNullNetwork,
		},
		{
			opts: NewWalletOpts{Passphrase: "p@ss", Network: Network("RegTest")},
			err:  ErrUnsupportedNetwork,
		},
	}
	for _, tt := range tests {
		_, err := NewWallet(tt.opts)
		assert.Equal(t, tt.err, err)
	}
}

func TestFailingNewWalletFromMnemonic(t *testing.T) {
	validMnemonic, err := NewMnemonic(NewMnemonicOpts{})
	require.NoError(t, err)

	// the valid all-"abandon" mnemonic ends with "about", so this checksum
	// is guaranteed wrong.
	badChecksum := strings.Split(
		"abandon abandon abandon abandon abandon abandon "+
			"abandon abandon abandon abandon abandon abandon", " ",
	)

	tests := []struct {
		name string
		opts NewWalletFromMnemonicOpts
		err  error
	}{
		{
			name: "null mnemonic",
			opts: NewWalletFromMnemonicOpts{
				Passphrase: "p@ss",
				Network:    TestNet,
			},
			err: ErrNullMnemonic,
		},
		{
			name: "not in wordlist",
			opts: NewWalletFromMnemonicOpts{
				Mnemonic:   []string{"foo", "bar", "baz"},
				Passphrase: "p@ss",
				Network:    TestNet,
			},
			err: ErrInvalidMnemonic,
		},
		{
			name: "bad checksum",
			opts: NewWalletFromMnemonicOpts{
				Mnemonic:   badChecksum,
				Passphrase: "p@ss",
				Network:    TestNet,
			},
			err: ErrInvalidMnemonic,
		},
		{
			name: "unknown network",
			opts: NewWalletFromMnemonicOpts{
				Mnemonic:   validMnemonic,
				Passphrase: "p@ss",
				Network:    Network("SigNet"),
			},
			err: ErrUnsupportedNetwork,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWalletFromMnemonic(tt.opts)
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestScrub(t *testing.T) {
	w, err := NewWallet(NewWalletOpts{
		Passphrase: "p@ss",
		Network:    TestNet,
	})
	require.NoError(t, err)

	w.Scrub()

	_, err = w.ExtendedPrivateKey()
	assert.Equal(t, ErrScrubbedWallet, err)
	_, err = w.Mnemonic()
	assert.Equal(t, ErrScrubbedWallet, err)
}

func TestParseNetwork(t *testing.T) {
	network, err := ParseNetwork("MainNet")
	require.NoError(t, err)
	assert.Equal(t, MainNet, network)

	_, err = ParseNetwork("LiteNet")
	assert.Equal(t, ErrUnsupportedNetwork, err)
}
