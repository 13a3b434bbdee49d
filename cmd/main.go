package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/order-fair/hotstuff/bft"
	"github.com/order-fair/hotstuff/lib"
	"github.com/order-fair/hotstuff/lib/crypto"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	RosterFilePath = "roster.json" // the file path for the committee's public keys, ordered by replica_id
)

var (
	rootCmd = &cobra.Command{Use: "order-fair-hotstuff", Short: "an order-fair three-chain BFT replica"}
	dataDir string
	pwd     string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "initialize the data directory (if needed) and start this replica",
	Run: func(cmd *cobra.Command, args []string) {
		Start(dataDir)
	},
}

func init() {
	startCmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory path, defaults to ~/.order-fair-hotstuff")
	startCmd.Flags().StringVar(&pwd, "password", "", "input the validator key password (not recommended)")
	rootCmd.AddCommand(startCmd)
}

// getPassword() returns the --password flag value, or prompts on stdin if it was left empty
func getPassword() string {
	if pwd != "" {
		return pwd
	}
	fmt.Println("Enter validator key password:")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		log.Fatal(err.Error())
	}
	return string(password)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// Start() boots one replica: loads (or creates) its data directory, configuration, and BLS
// validator key, resolves the committee roster, constructs the Core and its durable block
// store, runs OnInit, and blocks until an interrupt is received. Driving on_propose on a
// schedule is the pacemaker's job (out of scope, see SPEC_FULL.md §1) — this entrypoint only
// proves the wiring boots and stays up
func Start(dataDirPath string) {
	l := lib.NewDefaultLogger()
	c, valKey, roster := InitializeDataDirectory(dataDirPath, getPassword(), l)

	cfg := bft.NewReplicaConfig(c.ConsensusConfig)
	self := uint64(0)
	for i, pub := range roster {
		if pub.Equals(valKey.PublicKey()) {
			self = uint64(i)
		}
		if err := cfg.AddReplica(pub); err != nil {
			l.Fatalf("adding replica %d to roster failed: %s", i, err.Error())
		}
	}

	store, err := bft.NewBadgerBlockStore(c.StoreConfig, l)
	if err != nil {
		l.Fatalf("opening block store failed: %s", err.Error())
	}
	defer store.Close()

	core := bft.NewCore(self, valKey, cfg, bft.NewLoggingCallbacks(l), l)
	core.SetBlockStore(store)
	core.OnInit()
	l.Infof("replica %d initialized with %d committee members (nmajority=%d)", self, cfg.N, cfg.NMajority())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGABRT)
	s := <-stop
	l.Infof("exit signal %s received", s)
	os.Exit(0)
}

// InitializeDataDirectory() mirrors the teacher's own "create on first run, load thereafter"
// bootstrap: a config file, an encrypted validator key held in a keystore, and a roster file of
// the full committee's public keys (ordered by replica_id, this replica's own key included)
func InitializeDataDirectory(dataDirPath, password string, l lib.LoggerI) (c lib.Config, valKey crypto.PrivateKeyI, roster []crypto.PublicKeyI) {
	if dataDirPath == "" {
		dataDirPath = lib.DefaultDataDirPath()
	}
	l.Infof("reading data directory at %s", dataDirPath)
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		l.Fatalf("creating data directory failed: %s", err.Error())
	}

	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		l.Infof("creating %s", lib.ConfigFilePath)
		if err = lib.DefaultConfig().WriteToFile(configFilePath); err != nil {
			l.Fatalf("writing default config failed: %s", err.Error())
		}
	}
	var err error
	c, err = lib.NewConfigFromFile(configFilePath)
	if err != nil {
		l.Fatalf("reading config failed: %s", err.Error())
	}
	c.StoreConfig.DataDirPath = dataDirPath

	ks, err := crypto.NewKeystoreFromFile(dataDirPath)
	if err != nil {
		l.Fatalf("reading keystore failed: %s", err.Error())
	}
	if len(ks.ByAddress) == 0 {
		blsKey, keyErr := crypto.NewBLSPrivateKey()
		if keyErr != nil {
			l.Fatalf("generating validator key failed: %s", keyErr.Error())
		}
		l.Infof("creating %s", crypto.KeyStoreName)
		address, impErr := ks.ImportRaw(blsKey.Bytes(), password)
		if impErr != nil {
			l.Fatalf("encrypting validator key failed: %s", impErr.Error())
		}
		if err = ks.SaveToFile(dataDirPath); err != nil {
			l.Fatalf("writing keystore failed: %s", err.Error())
		}
		l.Infof("validator key address: %s", address)
	}
	var address string
	for address = range ks.ByAddress {
		break // single-validator-key keystore: the one entry present is this replica's key
	}
	addrBz, err := hex.DecodeString(address)
	if err != nil {
		l.Fatalf("decoding validator key address failed: %s", err.Error())
	}
	valKey, err = ks.GetKey(addrBz, password)
	if err != nil {
		l.Fatalf("decrypting validator key failed: %s", err.Error())
	}

	rosterFilePath := filepath.Join(dataDirPath, RosterFilePath)
	if _, err = os.Stat(rosterFilePath); errors.Is(err, os.ErrNotExist) {
		l.Infof("creating single-replica %s (this validator only)", RosterFilePath)
		if err = writeDefaultRosterFile(valKey, rosterFilePath); err != nil {
			l.Fatalf("writing default roster failed: %s", err.Error())
		}
	}
	roster, err = readRosterFile(rosterFilePath)
	if err != nil {
		l.Fatalf("reading roster failed: %s", err.Error())
	}
	return
}

func writeDefaultRosterFile(valKey crypto.PrivateKeyI, path string) error {
	bz, err := json.MarshalIndent([]string{valKey.PublicKey().String()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0644)
}

func readRosterFile(path string) ([]crypto.PublicKeyI, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var hexKeys []string
	if err = json.Unmarshal(bz, &hexKeys); err != nil {
		return nil, err
	}
	roster := make([]crypto.PublicKeyI, len(hexKeys))
	for i, hx := range hexKeys {
		pub, pubErr := crypto.NewBLSPublicKeyFromString(hx)
		if pubErr != nil {
			return nil, pubErr
		}
		roster[i] = pub
	}
	return roster, nil
}
