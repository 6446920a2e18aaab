package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gradwatch/internal/constants"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
)

const (
	pingInterval = 30 * time.Second
	readDeadline = 90 * time.Second

	initialReconnectWait = time.Second
	maxReconnectWait     = 30 * time.Second
)

// HintStream subscribes to the Helius websocket for transactions touching the
// pump.fun migration authority and emits the token mints it sees. Hints are
// advisory: the poll cycle remains the source of truth, the stream just lets
// the watcher look at a migration seconds after it lands instead of waiting
// for the next tick.
type HintStream struct {
	wsURL  string
	dialer *websocket.Dialer
	logger *logrus.Logger

	hints chan string
}

// HintStreamConfig holds configuration for the hint stream.
type HintStreamConfig struct {
	APIKey string
	WSURL  string // override for tests; defaults to the Helius atlas endpoint
	Logger *logrus.Logger
	Buffer int
}

// NewHintStream creates a stream. Run must be called to start it.
func NewHintStream(cfg HintStreamConfig) (*HintStream, error) {
	if cfg.WSURL == "" {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("helius api key is required for the hint stream")
		}
		cfg.WSURL = fmt.Sprintf("wss://atlas-mainnet.helius-rpc.com/?api-key=%s", cfg.APIKey)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}

	return &HintStream{
		wsURL:  cfg.WSURL,
		dialer: websocket.DefaultDialer,
		logger: cfg.Logger,
		hints:  make(chan string, cfg.Buffer),
	}, nil
}

// Hints is the channel of candidate mints. Closed when Run returns.
func (s *HintStream) Hints() <-chan string {
	return s.hints
}

// Run connects and reads until ctx is cancelled, reconnecting with capped
// exponential backoff on any failure.
func (s *HintStream) Run(ctx context.Context) error {
	defer close(s.hints)

	wait := initialReconnectWait
	for {
		if err := s.connectAndRead(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.WithError(err).WithField("retry_in", wait).Warn("hint stream disconnected")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > maxReconnectWait {
			wait = maxReconnectWait
		}
	}
}

func (s *HintStream) connectAndRead(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	sub := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "transactionSubscribe",
		"params": []interface{}{
			map[string]interface{}{
				"accountInclude": []string{constants.PumpFunMigrationAuthority},
				"failed":         false,
			},
			map[string]interface{}{
				"commitment":                     "confirmed",
				"encoding":                       "jsonParsed",
				"transactionDetails":             "full",
				"showRewards":                    false,
				"maxSupportedTransactionVersion": 0,
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	s.logger.Info("hint stream connected")

	// The connection dies silently on some proxies; ping on a timer and
	// treat a missed pong as a disconnect.
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("websocket read: %w", err)
		}

		for _, mint := range extractMints(raw) {
			select {
			case s.hints <- mint:
				s.logger.WithField("mint", mint).Debug("migration hint received")
			default:
				// A slow consumer must not stall the read loop.
				s.logger.WithField("mint", mint).Debug("hint buffer full, dropping")
			}
		}
	}
}

type txNotification struct {
	Params struct {
		Result struct {
			Signature   string `json:"signature"`
			Transaction struct {
				Meta struct {
					Err               interface{} `json:"err"`
					PostTokenBalances []struct {
						Mint string `json:"mint"`
					} `json:"postTokenBalances"`
				} `json:"meta"`
			} `json:"transaction"`
		} `json:"result"`
	} `json:"params"`
}

// extractMints pulls the candidate mints out of one notification. Wrapped SOL
// and anything that is not a well-formed base-58 32-byte address is dropped.
func extractMints(raw []byte) []string {
	var n txNotification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	if n.Params.Result.Transaction.Meta.Err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	for _, b := range n.Params.Result.Transaction.Meta.PostTokenBalances {
		mint := b.Mint
		if mint == "" || mint == constants.WrappedSolMint {
			continue
		}
		if _, dup := seen[mint]; dup {
			continue
		}
		if decoded, err := base58.Decode(mint); err != nil || len(decoded) != 32 {
			continue
		}
		seen[mint] = struct{}{}
		out = append(out, mint)
	}
	return out
}
