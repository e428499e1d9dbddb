package swap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"

	"degen-autotrader/internal/domain"
)

// ParseIntent reads "<assetId> <amount>" as a SOL-funded buy.
func ParseIntent(raw string) (domain.SwapIntent, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return domain.SwapIntent{}, fmt.Errorf("expected \"<asset> <amount>\", got %d fields: %w", len(fields), domain.ErrInvalidIntent)
	}
	asset := fields[0]
	if _, err := solana.PublicKeyFromBase58(asset); err != nil {
		return domain.SwapIntent{}, fmt.Errorf("asset %q: %v: %w", asset, err, domain.ErrInvalidIntent)
	}
	amount, err := strconv.ParseFloat(fields[1], 64)
	if err != nil || !domain.PositiveAmount(amount) {
		return domain.SwapIntent{}, fmt.Errorf("amount %q must be a positive number: %w", fields[1], domain.ErrInvalidIntent)
	}
	return domain.SwapIntent{InputAsset: domain.SOLMint, OutputAsset: asset, Amount: amount}, nil
}
