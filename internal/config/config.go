package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"

	"github.com/sentinelbtc/sentineld/pkg/wallet"
)

const (
	// DatadirKey is the local data directory to store the internal state of
	// the daemon (wallet file and monitor snapshots)
	DatadirKey = "DATADIR"
	// NetworkKey selects the bitcoin network, either MainNet or TestNet
	NetworkKey = "NETWORK"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// ConnectPeersKey is an optional list of peer addresses <host:port> dialed
	// instead of discovered ones
	ConnectPeersKey = "CONNECT_PEERS"

	// SnapshotsLocation is the datadir subdirectory holding monitor snapshots
	SnapshotsLocation = "snapshots"
	// WalletFile is the name of the encrypted wallet file inside the datadir
	WalletFile = "wallet.json"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("sentineld", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("SENTINEL")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(NetworkKey, wallet.TestNet.String())
	vip.SetDefault(LogLevelKey, 4)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetStringSlice(key string) []string {
	return vip.GetStringSlice(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// GetNetwork returns the configured network tag.
func GetNetwork() (wallet.Network, error) {
	return wallet.ParseNetwork(GetString(NetworkKey))
}

// GetWalletPath returns the path of the encrypted wallet file.
func GetWalletPath() string {
	return filepath.Join(GetDatadir(), WalletFile)
}

// GetSnapshotsDir returns the directory holding the monitor snapshots.
func GetSnapshotsDir() string {
	return filepath.Join(GetDatadir(), SnapshotsLocation)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if _, err := wallet.ParseNetwork(GetString(NetworkKey)); err != nil {
		return fmt.Errorf(
			"%s must be one of %s, %s", NetworkKey, wallet.MainNet, wallet.TestNet,
		)
	}

	return nil
}

func initDatadir() error {
	return makeDirectoryIfNotExists(filepath.Join(GetDatadir(), SnapshotsLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
