package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// Wallet signs router transactions and reads the on-chain SOL balance.
type Wallet struct {
	key solana.PrivateKey
	rpc *rpc.Client
}

// LoadWallet parses a private key given as a JSON byte array or a base58 string.
func LoadWallet(raw, rpcURL string) (*Wallet, error) {
	key, err := parsePrivateKey(raw)
	if err != nil {
		return nil, err
	}
	w := &Wallet{key: key}
	if rpcURL != "" {
		w.rpc = rpc.New(rpcURL)
	}
	return w, nil
}

func parsePrivateKey(raw string) (solana.PrivateKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	if strings.HasPrefix(raw, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(raw), &ints); err != nil {
			return nil, fmt.Errorf("parse private key byte array: %w", err)
		}
		if len(ints) != 64 {
			return nil, fmt.Errorf("private key must be 64 bytes, got %d", len(ints))
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("private key byte %d out of range: %d", i, v)
			}
			b[i] = byte(v)
		}
		return solana.PrivateKey(b), nil
	}
	key, err := solana.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base58 private key: %w", err)
	}
	return key, nil
}

func (w *Wallet) PublicKey() string {
	return w.key.PublicKey().String()
}

// SignTransaction signs a serialized transaction for the wallet's key and re-serializes it.
func (w *Wallet) SignTransaction(raw []byte) ([]byte, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	pub := w.key.PublicKey()
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &w.key
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	out, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return out, nil
}

// Balance returns the finalized SOL balance of the wallet.
func (w *Wallet) Balance(ctx context.Context) (float64, error) {
	if w.rpc == nil {
		return 0, fmt.Errorf("no rpc endpoint configured")
	}
	res, err := w.rpc.GetBalance(ctx, w.key.PublicKey(), rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	sol, _ := decimal.NewFromInt(int64(res.Value)).Shift(-9).Float64()
	return sol, nil
}
