package rpc

import "fmt"

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// ResponseContext is the slot context attached to most RPC results
type ResponseContext struct {
	Slot uint64 `json:"slot"`
}

// AccountValue is the account payload of getAccountInfo.
// Data is [base64 string, "base64"].
type AccountValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
	Space      uint64   `json:"space"`
}

// AccountInfoResponse is the response from getAccountInfo
type AccountInfoResponse struct {
	Result struct {
		Context ResponseContext `json:"context"`
		Value   *AccountValue   `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// BlockhashResponse is the response from getLatestBlockhash
type BlockhashResponse struct {
	Result struct {
		Context ResponseContext `json:"context"`
		Value   struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// SendOptions configures sendTransaction
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *int
}

// SendTransactionResponse is the response from sendTransaction
type SendTransactionResponse struct {
	Result string    `json:"result"`
	Error  *RPCError `json:"error"`
}

// SignatureStatus is one entry of getSignatureStatuses
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// SignatureStatusesResponse is the response from getSignatureStatuses
type SignatureStatusesResponse struct {
	Result struct {
		Context ResponseContext    `json:"context"`
		Value   []*SignatureStatus `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// SignatureInfo is one entry of getSignaturesForAddress, newest first
type SignatureInfo struct {
	Signature          string      `json:"signature"`
	Slot               uint64      `json:"slot"`
	Err                interface{} `json:"err"`
	BlockTime          *int64      `json:"blockTime"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// SignaturesOptions configures getSignaturesForAddress
type SignaturesOptions struct {
	Limit      int
	Before     string // start before this signature, exclusive
	Until      string // stop at this signature, exclusive
	Commitment string
}

// SignaturesResponse is the response from getSignaturesForAddress
type SignaturesResponse struct {
	Result []SignatureInfo `json:"result"`
	Error  *RPCError       `json:"error"`
}

// TokenAmount is a token balance. Amount is the raw u64 as a string.
type TokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

// TokenBalance is a pre or post token balance of one account in a transaction
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// TransactionMeta contains metadata about a transaction
type TransactionMeta struct {
	Err               interface{}    `json:"err"`
	Fee               uint64         `json:"fee"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
}

// AccountKey is one account of a jsonParsed message, including accounts
// loaded from lookup tables
type AccountKey struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

// TransactionMessage contains the transaction message
type TransactionMessage struct {
	AccountKeys []AccountKey `json:"accountKeys"`
}

// Transaction is a jsonParsed transaction
type Transaction struct {
	Signatures []string           `json:"signatures"`
	Message    TransactionMessage `json:"message"`
}

// TransactionResult contains the full transaction data
type TransactionResult struct {
	Slot        uint64           `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Meta        *TransactionMeta `json:"meta"`
	Transaction *Transaction     `json:"transaction"`
}

// TransactionResponse is the response from getTransaction. A nil Result
// means the node does not have the transaction.
type TransactionResponse struct {
	Result *TransactionResult `json:"result"`
	Error  *RPCError          `json:"error"`
}
