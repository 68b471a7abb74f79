package randomness

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/types"
)

// BeaconSize is the length of a drand round's randomness.
const BeaconSize = 32

var (
	oracleConfigKey = []byte("config")
	latestRoundKey  = []byte("latest")
)

const beaconPrefix = "beacon/"

// OracleConfig lists the workers allowed to submit beacons.
type OracleConfig struct {
	Workers []string `json:"workers"`
}

// Validate checks the configuration is usable.
func (c OracleConfig) Validate() error {
	for _, w := range c.Workers {
		if w == "" {
			return types.Wrapf(types.ErrInvalidRequest, "empty worker address")
		}
	}
	return nil
}

// Beacon is a stored round.
type Beacon struct {
	Round      uint64 `json:"round"`
	Randomness []byte `json:"randomness"`
	Worker     string `json:"worker"`
}

// Oracle is the on-ledger randomness beacon contract. Rounds are written
// once by a configured worker and read by every validator alike.
type Oracle struct {
	address string
	kv      store.KVStore
}

// NewOracle binds the oracle deployed at address to its state.
func NewOracle(address string, kv store.KVStore) *Oracle {
	return &Oracle{address: address, kv: kv}
}

// Address returns the contract address.
func (o *Oracle) Address() string {
	return o.address
}

// Instantiate stores the initial configuration.
func (o *Oracle) Instantiate(cfg OracleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return store.SetJSON(o.kv, oracleConfigKey, cfg)
}

// Config returns the current configuration.
func (o *Oracle) Config() (OracleConfig, error) {
	var cfg OracleConfig
	err := store.GetJSON(o.kv, oracleConfigKey, &cfg)
	return cfg, err
}

// SubmitBeacon records the randomness of round. The first submission for a
// round is final.
func (o *Oracle) SubmitBeacon(sender string, round uint64, randomness []byte) ([]abcitypes.Event, error) {
	cfg, err := o.Config()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(cfg.Workers, sender) {
		return nil, types.Wrapf(types.ErrUnauthorized, "%s is not an oracle worker", sender)
	}
	if len(randomness) != BeaconSize {
		return nil, types.Wrapf(types.ErrInvalidRequest, "randomness must be %d bytes, got %d", BeaconSize, len(randomness))
	}
	key := beaconKey(round)
	exists, err := store.Has(o.kv, key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, types.Wrapf(types.ErrBeaconExists, "round %d", round)
	}
	if err := store.SetJSON(o.kv, key, Beacon{Round: round, Randomness: randomness, Worker: sender}); err != nil {
		return nil, err
	}

	latest, err := store.GetUint64(o.kv, latestRoundKey)
	if err != nil {
		return nil, err
	}
	if round > latest {
		if err := store.SetUint64(o.kv, latestRoundKey, round); err != nil {
			return nil, err
		}
	}
	return []abcitypes.Event{types.NewEvent("submit_beacon",
		"worker", sender,
		"round", strconv.FormatUint(round, 10),
	)}, nil
}

// Beacon returns the stored randomness of round.
func (o *Oracle) Beacon(round uint64) (*Beacon, error) {
	var b Beacon
	err := store.GetJSON(o.kv, beaconKey(round), &b)
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, types.Wrapf(types.ErrNotFound, "no beacon for round %d", round)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LatestRound returns the highest round submitted so far, 0 if none.
func (o *Oracle) LatestRound() (uint64, error) {
	return store.GetUint64(o.kv, latestRoundKey)
}

// Query answers a JSON smart query: get_randomness or latest_round.
func (o *Oracle) Query(_ context.Context, query []byte) ([]byte, error) {
	var q oracleQuery
	if err := json.Unmarshal(query, &q); err != nil {
		return nil, types.Wrapf(types.ErrUnknownRequest, "decoding oracle query: %v", err)
	}
	switch {
	case q.GetRandomness != nil:
		b, err := o.Beacon(q.GetRandomness.Round)
		if err != nil {
			return nil, err
		}
		return json.Marshal(Randomness{Bytes: b.Randomness, Worker: b.Worker})
	case q.LatestRound != nil:
		latest, err := o.LatestRound()
		if err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Round uint64 `json:"round"`
		}{latest})
	default:
		return nil, types.Wrapf(types.ErrUnknownRequest, "unknown oracle query")
	}
}

func beaconKey(round uint64) []byte {
	return append([]byte(beaconPrefix), store.Uint64ToBytes(round)...)
}
