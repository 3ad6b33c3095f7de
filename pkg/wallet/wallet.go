package wallet

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/vulpemventures/go-bip39"
)

var (
	// ErrNullMnemonic ...
	ErrNullMnemonic = errors.New("mnemonic must not be null")
	// ErrNullPassphrase ...
	ErrNullPassphrase = errors.New("passphrase must not be null")
	// ErrNullPlainText ...
	ErrNullPlainText = errors.New("text to encrypt must not be null")
	// ErrNullCypherText ...
	ErrNullCypherText = errors.New("cypher to decrypt must not be null")
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network must not be null")

	// ErrInvalidMnemonic ...
	ErrInvalidMnemonic = errors.New("mnemonic is invalid")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrInvalidCypherText ...
	ErrInvalidCypherText = errors.New("cypher must be in base64 format")

	// ErrDecryptionFailed ...
	ErrDecryptionFailed = errors.New(
		"cypher text could not be authenticated with the provided passphrase",
	)
	// ErrUnsupportedNetwork ...
	ErrUnsupportedNetwork = errors.New(
		"network must be one of MainNet, TestNet",
	)
	// ErrScrubbedWallet ...
	ErrScrubbedWallet = errors.New("wallet key material has been scrubbed")
)

// Wallet holds the mnemonic and the master extended key deterministically
// derived from it for a declared network. The master key is always derived
// from mnemonic+passphrase, never set independently.
type Wallet struct {
	mnemonic  []string
	masterKey *hdkeychain.ExtendedKey
	network   Network
}

// NewWalletOpts is the struct given to the NewWallet method
type NewWalletOpts struct {
	Passphrase string
	Network    Network
}

func (o NewWalletOpts) validate() error {
	if len(o.Network) <= 0 {
		return ErrNullNetwork
	}
	if _, err := o.Network.ChainParams(); err != nil {
		return err
	}
	return nil
}

// NewWallet creates a new wallet with a freshly generated 12-word mnemonic
// and the master key derived for the given network.
func NewWallet(opts NewWalletOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	mnemonic, err := NewMnemonic(NewMnemonicOpts{})
	if err != nil {
		return nil, err
	}

	return newWalletFromValidMnemonic(mnemonic, opts.Passphrase, opts.Network)
}

// NewWalletFromMnemonicOpts is the struct given to the NewWalletFromMnemonic method
type NewWalletFromMnemonicOpts struct {
	Mnemonic   []string
	Passphrase string
	Network    Network
}

func (o NewWalletFromMnemonicOpts) validate() error {
	if len(o.Mnemonic) <= 0 {
		return ErrNullMnemonic
	}
	if !isMnemonicValid(o.Mnemonic) {
		return ErrInvalidMnemonic
	}
	if len(o.Network) <= 0 {
		return ErrNullNetwork
	}
	if _, err := o.Network.ChainParams(); err != nil {
		return err
	}
	return nil
}

// NewWalletFromMnemonic recovers a wallet from an existing mnemonic, deriving
// the master key for the given network.
func NewWalletFromMnemonic(opts NewWalletFromMnemonicOpts) (*Wallet, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return newWalletFromValidMnemonic(opts.Mnemonic, opts.Passphrase, opts.Network)
}

func newWalletFromValidMnemonic(
	mnemonic []string, passphrase string, network Network,
) (*Wallet, error) {
	params, err := network.ChainParams()
	if err != nil {
		return nil, err
	}

	seed := bip39.NewSeed(strings.Join(mnemonic, " "), passphrase)
	masterKey, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, err
	}

	return &Wallet{
		mnemonic:  mnemonic,
		masterKey: masterKey,
		network:   network,
	}, nil
}

func (w *Wallet) validate() error {
	if w.masterKey == nil {
		return ErrScrubbedWallet
	}
	if _, err := w.network.ChainParams(); err != nil {
		return err
	}
	return nil
}

// Mnemonic returns the wallet's mnemonic as a list of words.
func (w *Wallet) Mnemonic() ([]string, error) {
	if err := w.validate(); err != nil {
		return nil, err
	}
	mnemonic := make([]string, len(w.mnemonic))
	copy(mnemonic, w.mnemonic)
	return mnemonic, nil
}

// Network returns the network the wallet was created for.
func (w *Wallet) Network() (Network, error) {
	if _, err := w.network.ChainParams(); err != nil {
		return "", err
	}
	return w.network, nil
}

// Scrub zeroes the wallet's key material. The wallet is unusable afterwards.
func (w *Wallet) Scrub() {
	if w.masterKey != nil {
		w.masterKey.Zero()
		w.masterKey = nil
	}
	for i := range w.mnemonic {
		w.mnemonic[i] = ""
	}
	w.mnemonic = nil
}
