package main

import (
	"encoding/json"
	"fmt"

	cmttypes "github.com/cometbft/cometbft/types"

	"github.com/ahmadzakiakmal/internnft-chain/app"
)

// ensureAppState writes the default deployment into a genesis file whose
// app_state is empty, and validates it otherwise. It reports whether the
// file was rewritten.
func ensureAppState(genesisFile, admin string) (bool, error) {
	genDoc, err := cmttypes.GenesisDocFromFile(genesisFile)
	if err != nil {
		return false, fmt.Errorf("reading genesis: %w", err)
	}

	if len(genDoc.AppState) > 0 && string(genDoc.AppState) != "null" && string(genDoc.AppState) != "{}" {
		if _, err := app.ParseGenesis(genDoc.AppState); err != nil {
			return false, fmt.Errorf("genesis app_state: %w", err)
		}
		return false, nil
	}

	appState, err := json.Marshal(app.DefaultGenesis(admin))
	if err != nil {
		return false, err
	}
	genDoc.AppState = appState
	if err := genDoc.SaveAs(genesisFile); err != nil {
		return false, fmt.Errorf("writing genesis: %w", err)
	}
	return true, nil
}
