package wallet

import "github.com/btcsuite/btcd/chaincfg"

const (
	// MainNet ...
	MainNet Network = "MainNet"
	// TestNet ...
	TestNet Network = "TestNet"
)

// Network is the tag naming the bitcoin network a wallet belongs to.
type Network string

// ParseNetwork returns the Network for the given tag, or
// ErrUnsupportedNetwork if the tag is not a known network name.
func ParseNetwork(tag string) (Network, error) {
	network := Network(tag)
	if _, err := network.ChainParams(); err != nil {
		return "", err
	}
	return network, nil
}

// ChainParams returns the chain parameters of the network.
func (n Network) ChainParams() (*chaincfg.Params, error) {
	switch n {
	case MainNet:
		return &chaincfg.MainNetParams, nil
	case TestNet:
		return &chaincfg.TestNet3Params, nil
	default:
		return nil, ErrUnsupportedNetwork
	}
}

func (n Network) String() string {
	return string(n)
}
