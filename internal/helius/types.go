package helius

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// tokenAccountsResponse is the envelope of the DAS getTokenAccounts method.
type tokenAccountsResponse struct {
	Result *tokenAccountsResult `json:"result"`
	Error  *RPCError            `json:"error"`
}

type tokenAccountsResult struct {
	Total         int            `json:"total"`
	Limit         int            `json:"limit"`
	Page          int            `json:"page"`
	TokenAccounts []tokenAccount `json:"token_accounts"`
}

type tokenAccount struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
	Frozen  bool   `json:"frozen"`
}
