package app

import (
	"encoding/json"
	"fmt"

	"github.com/ahmadzakiakmal/internnft-chain/randomness"
	"github.com/ahmadzakiakmal/internnft-chain/staking"
	"github.com/ahmadzakiakmal/internnft-chain/store"
	"github.com/ahmadzakiakmal/internnft-chain/token"
)

// GenesisState is the app_state of the genesis document.
type GenesisState struct {
	NFT     NFTGenesis     `json:"nft"`
	Staking StakingGenesis `json:"staking"`
	Oracle  OracleGenesis  `json:"oracle"`
}

type NFTGenesis struct {
	Admin   string       `json:"admin"`
	Address string       `json:"address"`
	Config  token.Config `json:"config"`
}

type StakingGenesis struct {
	Address string         `json:"address"`
	Config  staking.Config `json:"config"`
}

type OracleGenesis struct {
	Address string                  `json:"address"`
	Config  randomness.OracleConfig `json:"config"`
}

// DefaultGenesis deploys the three contracts under fixed addresses, with
// admin owning the token and staking contracts.
func DefaultGenesis(admin string) GenesisState {
	contracts := Contracts{NFT: "internnft", Staking: "staking", Oracle: "oracle"}

	nftCfg := token.DefaultConfig()
	nftCfg.StakingContract = contracts.Staking

	stakingCfg := staking.DefaultConfig()
	stakingCfg.Owner = admin
	stakingCfg.NFTContract = contracts.NFT
	stakingCfg.OracleContract = contracts.Oracle

	return GenesisState{
		NFT:     NFTGenesis{Admin: admin, Address: contracts.NFT, Config: nftCfg},
		Staking: StakingGenesis{Address: contracts.Staking, Config: stakingCfg},
		Oracle:  OracleGenesis{Address: contracts.Oracle, Config: randomness.OracleConfig{Workers: []string{admin}}},
	}
}

// Contracts returns the deployment addresses.
func (g GenesisState) Contracts() Contracts {
	return Contracts{NFT: g.NFT.Address, Staking: g.Staking.Address, Oracle: g.Oracle.Address}
}

// Validate checks the addresses are set and distinct.
func (g GenesisState) Validate() error {
	c := g.Contracts()
	if c.NFT == "" || c.Staking == "" || c.Oracle == "" {
		return fmt.Errorf("every contract needs an address")
	}
	if c.NFT == c.Staking || c.NFT == c.Oracle || c.Staking == c.Oracle {
		return fmt.Errorf("contract addresses must be distinct")
	}
	return nil
}

// ParseGenesis decodes and validates app_state.
func ParseGenesis(raw []byte) (GenesisState, error) {
	var g GenesisState
	if err := json.Unmarshal(raw, &g); err != nil {
		return GenesisState{}, fmt.Errorf("malformed app_state: %w", err)
	}
	if err := g.Validate(); err != nil {
		return GenesisState{}, err
	}
	return g, nil
}

// instantiate deploys the genesis contracts into kv.
func instantiate(kv store.KVStore, g GenesisState, r *Router) error {
	if err := r.registry.Instantiate(g.NFT.Admin, g.NFT.Config); err != nil {
		return fmt.Errorf("nft contract: %w", err)
	}
	if err := r.engine.Instantiate(g.Staking.Config); err != nil {
		return fmt.Errorf("staking contract: %w", err)
	}
	if err := r.oracle.Instantiate(g.Oracle.Config); err != nil {
		return fmt.Errorf("oracle contract: %w", err)
	}
	return store.SetJSON(kv, contractsKey, g.Contracts())
}
