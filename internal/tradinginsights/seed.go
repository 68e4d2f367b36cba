package tradinginsights

import (
	"context"
	"errors"
	"fmt"

	"github.com/aiokaizen/bear-vision/internal/lava/model"
	"github.com/aiokaizen/bear-vision/internal/storage"
)

// Symbols is the built-in forex symbol list.
var Symbols = []string{
	"EURUSD", "GBPUSD", "USDCHF", "USDJPY", "USDCAD", "AUDUSD",
	"AUDCAD", "AUDCHF", "AUDJPY", "CHFJPY", "EURGBP", "EURAUD",
	"EURCHF", "EURJPY", "EURCAD", "GBPCHF", "GBPJPY", "CADCHF",
	"CADJPY", "GBPAUD", "GBPCAD", "AUDNZD", "EURNZD", "AUDSGD",
	"CHFSGD", "EURDKK", "EURHKD", "EURNOK", "EURPLN", "EURSEK",
	"EURSGD", "EURTRY", "EURZAR", "GBPDKK", "GBPNOK", "GBPSEK",
	"GBPSGD", "GBPTRY", "NOKJPY", "NOKSEK", "SEKJPY", "SGDJPY",
	"USDCNH", "USDCZK", "USDDKK", "USDHKD",
}

// SeedSymbols creates the missing symbols among names and returns how many
// were created. Existing symbols are left untouched.
func SeedSymbols(ctx context.Context, store *storage.Store, mgr *model.Manager, names []string, actor *int64) (int, error) {
	created := 0
	for _, name := range names {
		_, err := store.FindBy(ctx, SymbolDescriptor, "name", name)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return created, fmt.Errorf("failed to look up symbol %s: %w", name, err)
		}
		if res := mgr.Create(ctx, NewSymbol(name), actor); !res.IsSuccess() {
			return created, fmt.Errorf("failed to create symbol %s: %s", name, res.Message())
		}
		created++
	}
	return created, nil
}
