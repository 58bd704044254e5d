package solanaclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/alienx5499/zyura-backend/internal/logger"
	"github.com/alienx5499/zyura-backend/internal/pkg/errs"
	"github.com/alienx5499/zyura-backend/internal/pkg/httpx"
	"github.com/alienx5499/zyura-backend/internal/utils"
)

// Submission failure taxonomy. Callers must treat a confirmation timeout as
// ambiguous: the transaction may have landed, so re-read account state
// before any resend.
var (
	ErrSimulationRejected  = errors.New("transaction simulation rejected")
	ErrBroadcastTimeout    = errors.New("transaction broadcast timed out")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// KeyedAccount pairs an account address with its raw data.
type KeyedAccount struct {
	Pubkey solana.PublicKey
	Data   []byte
}

// Client is the ledger RPC surface the settlement pipeline needs. Account
// state is only ever mutated through Submit; reads go through the fetchers.
type Client interface {
	FetchAccount(ctx context.Context, addr solana.PublicKey) ([]byte, error)
	FetchProgramAccounts(ctx context.Context, programID solana.PublicKey, discriminator []byte) ([]KeyedAccount, error)
	Submit(ctx context.Context, instructions []solana.Instruction, signer solana.PrivateKey) (solana.Signature, error)
}

type client struct {
	log *logger.Logger
	rpc *rpc.Client

	broadcastRetries int
	confirmAttempts  int
	confirmBackoff   time.Duration
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	rpcURL := strings.TrimSpace(os.Getenv("RPC_URL"))
	if rpcURL == "" {
		rpcURL = rpc.DevNet_RPC
	}

	broadcastRetries := utils.GetEnvAsInt("RPC_BROADCAST_RETRIES", 3, log)
	confirmAttempts := utils.GetEnvAsInt("RPC_CONFIRM_ATTEMPTS", 20, log)
	confirmBackoffMs := utils.GetEnvAsInt("RPC_CONFIRM_BACKOFF_MS", 500, log)

	return &client{
		log:              log.With("client", "SolanaClient"),
		rpc:              rpc.New(rpcURL),
		broadcastRetries: broadcastRetries,
		confirmAttempts:  confirmAttempts,
		confirmBackoff:   time.Duration(confirmBackoffMs) * time.Millisecond,
	}, nil
}

func (c *client) FetchAccount(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("account %s: %w", addr, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("get account %s: %w", addr, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("account %s: %w", addr, errs.ErrNotFound)
	}
	return res.Value.Data.GetBinary(), nil
}

func (c *client) FetchProgramAccounts(ctx context.Context, programID solana.PublicKey, discriminator []byte) ([]KeyedAccount, error) {
	res, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  solana.Base58(discriminator),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get program accounts: %w", err)
	}
	out := make([]KeyedAccount, 0, len(res))
	for _, ka := range res {
		if ka == nil || ka.Account == nil {
			continue
		}
		out = append(out, KeyedAccount{
			Pubkey: ka.Pubkey,
			Data:   ka.Account.Data.GetBinary(),
		})
	}
	return out, nil
}

// Submit signs and broadcasts a transaction, then polls for confirmation.
// Broadcast failures retry with jittered backoff up to the configured
// bound; an RPC-level rejection is fatal and never retried here.
func (c *client) Submit(ctx context.Context, instructions []solana.Instruction, signer solana.PrivateKey) (solana.Signature, error) {
	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get latest blockhash: %w: %v", ErrBroadcastTimeout, err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solana.TransactionPayer(signer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("assemble transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("sign transaction: %w", err)
	}

	var sig solana.Signature
	for attempt := 0; ; attempt++ {
		sig, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
		if err == nil {
			break
		}
		var rpcErr *jsonrpc.RPCError
		if errors.As(err, &rpcErr) {
			// The node saw the transaction and rejected it; the
			// instruction or its accounts are invalid.
			return solana.Signature{}, fmt.Errorf("%w: %s", ErrSimulationRejected, rpcErr.Message)
		}
		if attempt+1 >= c.broadcastRetries {
			return solana.Signature{}, fmt.Errorf("%w after %d attempts: %v", ErrBroadcastTimeout, attempt+1, err)
		}
		c.log.Warn("Broadcast failed, retrying", "attempt", attempt+1, "error", err)
		if err := httpx.SleepCtx(ctx, httpx.Backoff(attempt, c.confirmBackoff, 8*time.Second)); err != nil {
			return solana.Signature{}, fmt.Errorf("%w: %v", ErrBroadcastTimeout, err)
		}
	}

	if err := c.awaitConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (c *client) awaitConfirmation(ctx context.Context, sig solana.Signature) error {
	for attempt := 0; attempt < c.confirmAttempts; attempt++ {
		res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && res != nil && len(res.Value) > 0 && res.Value[0] != nil {
			st := res.Value[0]
			if st.Err != nil {
				return fmt.Errorf("%w: transaction %s failed on chain: %v", ErrSimulationRejected, sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
		if err != nil {
			c.log.Debug("Signature status poll failed", "signature", sig.String(), "error", err)
		}
		if err := httpx.SleepCtx(ctx, httpx.Backoff(attempt, c.confirmBackoff, 8*time.Second)); err != nil {
			return fmt.Errorf("%w: %v", ErrConfirmationTimeout, err)
		}
	}
	// The transaction was broadcast but never observed as confirmed. It may
	// still land; the caller must re-read account state before resending.
	return fmt.Errorf("%w: signature %s", ErrConfirmationTimeout, sig)
}
