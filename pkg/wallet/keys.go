package wallet

// ExtendedPrivateKey returns the master extended private key in base58
// format, encoded for the wallet's network.
func (w *Wallet) ExtendedPrivateKey() (string, error) {
	if err := w.validate(); err != nil {
		return "", err
	}
	return w.masterKey.String(), nil
}

// ExtendedPublicKey returns the master extended public key in base58 format,
// encoded for the wallet's network.
func (w *Wallet) ExtendedPublicKey() (string, error) {
	if err := w.validate(); err != nil {
		return "", err
	}

	xpub, err := w.masterKey.Neuter()
	if err != nil {
		return "", err
	}
	return xpub.String(), nil
}
