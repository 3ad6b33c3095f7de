package wallet

import (
	"strings"

	"github.com/vulpemventures/go-bip39"
)

// NewMnemonicOpts is the struct given to the NewMnemonic method
type NewMnemonicOpts struct {
	EntropySize int
}

func (o NewMnemonicOpts) validate() error {
	if o.EntropySize > 0 {
		if o.EntropySize < 128 || o.EntropySize > 256 || o.EntropySize%32 != 0 {
			return ErrInvalidEntropySize
		}
	}
	if o.EntropySize < 0 {
		return ErrInvalidEntropySize
	}
	return nil
}

// NewMnemonic returns a new mnemonic as a list of words. The default entropy
// size of 128 bits yields a 12-word mnemonic.
func NewMnemonic(opts NewMnemonicOpts) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.EntropySize == 0 {
		opts.EntropySize = 128
	}

	entropy, err := bip39.NewEntropy(opts.EntropySize)
	if err != nil {
		return nil, err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, err
	}
	return strings.Split(mnemonic, " "), nil
}

// isMnemonicValid checks wordlist membership and the checksum. Recovering
// the entropy is the only bip39 operation that verifies the checksum bits.
func isMnemonicValid(mnemonic []string) bool {
	_, err := bip39.EntropyFromMnemonic(strings.Join(mnemonic, " "))
	return err == nil
}
